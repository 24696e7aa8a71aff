// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package dlcore declares the interfaces shared across the MBR, EBR and
// GPT packages: the mbr package holds the ebr.Label or gpt.Label nested in
// one of its entries as a Disklabel, and the device node and the disklabel
// dispatcher handle every variant through these interfaces.
package dlcore

import (
	"github.com/gpartitions/disklabel/geometry"
	"github.com/gpartitions/disklabel/objtree"
)

// Disklabel is the common capability of MbrLabel, EbrLabel and GptLabel.
type Disklabel interface {
	objtree.Node

	// System names the disklabel kind ("MBR", "GPT" or "EBR").
	System() string

	// Partitions returns the disklabel's child partitions, in on-disk
	// slot order. Empty slots are omitted.
	Partitions() []Partition

	// Commit serializes the disklabel's own on-disk structure to its
	// backing device, then commits every child partition (which in turn
	// commits its own nested disklabel, if any). See §4.5/4.6/4.7 for
	// per-format order.
	Commit() error

	// Raw returns what Commit would write, without performing any I/O.
	Raw() ([]byte, error)
}

// Partition is the common capability of Primary, Logical, Extended and
// GuidProtective partitions.
type Partition interface {
	objtree.Node

	// Type returns "PRIMARY", "LOGICAL", "EXTENDED", "EXTENDED LBA" or
	// "GUID".
	Type() string

	// Number is the partition's 1-based slot index within its disklabel.
	Number() int

	// HaveDisklabel reports whether this partition owns a nested
	// disklabel (true only for Extended and GuidProtective).
	HaveDisklabel() bool

	// Disklabel returns the nested disklabel, or nil if HaveDisklabel
	// is false.
	Disklabel() Disklabel

	// Read and Write are bounds-checked against the partition's own
	// [start, end] range; offsets are in sectors relative to the
	// partition's first sector.
	Read(sector uint64, buf []byte) error
	Write(sector uint64, buf []byte) error

	// Move and Resize are presently unimplemented for every variant and
	// fail ENotSupported (§9 open question 5).
	Move(startRange *geometry.Geometry) error
	Resize(endRange *geometry.Geometry) error

	// Commit writes any nested disklabel; a no-op for Primary/Logical.
	Commit() error
}
