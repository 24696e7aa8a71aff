// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt

import (
	"github.com/google/uuid"

	"github.com/gpartitions/disklabel/dlerrors"
)

// Options configures a new GPT label.
type Options struct {
	NumEntries      uint32
	EntriesLBA      uint64
	MarkMBRBootable bool
}

// Option is a functional option for New.
type Option func(*Options)

// WithNumEntries overrides the default of 128 partition entries.
func WithNumEntries(n uint32) Option {
	return func(o *Options) { o.NumEntries = n }
}

// WithEntriesLBA overrides the LBA at which the primary entry array starts
// (default 2).
func WithEntriesLBA(lba uint64) Option {
	return func(o *Options) { o.EntriesLBA = lba }
}

// WithMarkMBRBootable marks the protective MBR entry bootable.
func WithMarkMBRBootable(v bool) Option {
	return func(o *Options) { o.MarkMBRBootable = v }
}

func defaultOptions(setters ...Option) Options {
	opts := Options{NumEntries: 128, EntriesLBA: 2}

	for _, set := range setters {
		set(&opts)
	}

	return opts
}

// PartitionOptions configures a created partition entry.
type PartitionOptions struct {
	Type  uuid.UUID
	Name  string
	Flags uint64
}

// PartitionOption is a functional option for CreatePartition.
type PartitionOption func(*PartitionOptions)

// WithPartitionName sets the partition name.
func WithPartitionName(name string) PartitionOption {
	return func(o *PartitionOptions) { o.Name = name }
}

// WithPartitionFlags sets the partition attribute flags.
func WithPartitionFlags(flags uint64) PartitionOption {
	return func(o *PartitionOptions) { o.Flags = flags }
}

func defaultPartitionOptions(setters ...PartitionOption) PartitionOptions {
	opts := PartitionOptions{Type: BasicDataGUID}

	for _, set := range setters {
		set(&opts)
	}

	return opts
}

// ParseType resolves the "PRIMARY" type tag accepted by CreatePartition;
// any other tag fails with EPartitionType, matching §4.7 and the uniform
// taxonomy used by mbr.CreatePartition.
func ParseType(tag string) error {
	if tag != "PRIMARY" {
		return dlerrors.Newf(dlerrors.KindPartitionType, "gpt: unknown partition type %q", tag).WithField("type")
	}

	return nil
}
