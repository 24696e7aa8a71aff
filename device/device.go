// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package device implements the root DeviceNode of the object tree (C6):
// the polymorphic node wrapping a BlockDevice capability and, optionally,
// one child disklabel.
package device

import (
	"go.uber.org/zap"

	"github.com/gpartitions/disklabel/blockio"
	"github.com/gpartitions/disklabel/dlcore"
	"github.com/gpartitions/disklabel/dlerrors"
	"github.com/gpartitions/disklabel/objtree"
)

// Node is the root of the object tree: a BlockDevice plus at most one
// child Disklabel.
type Node struct {
	*objtree.Base

	dev       blockio.BlockDevice
	disklabel dlcore.Disklabel
	log       *zap.SugaredLogger
}

// Option configures a Node at construction.
type Option func(*Node)

// WithLogger attaches a structured logger; the default is a no-op logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(n *Node) { n.log = log }
}

// New wraps dev as the root DeviceNode. The node starts with no
// disklabel; callers populate it via SetDisklabel after probing or
// creating one.
func New(dev blockio.BlockDevice, opts ...Option) *Node {
	n := &Node{dev: dev, log: zap.NewNop().Sugar()}
	n.Base = objtree.NewBase(objtree.KindDevice, nil, n.release)

	for _, opt := range opts {
		opt(n)
	}

	return n
}

func (n *Node) release() {
	if n.disklabel != nil {
		n.disklabel.Unref()
		n.disklabel = nil
	}
}

// Start implements objtree.Node; a device always starts at sector 0.
func (n *Node) Start() uint64 {
	return 0
}

// End implements objtree.Node: the last addressable sector.
func (n *Node) End() uint64 {
	total := n.dev.TotalSectors()
	if total == 0 {
		return 0
	}

	return total - 1
}

// BlockDevice returns the underlying BlockDevice capability.
func (n *Node) BlockDevice() blockio.BlockDevice {
	return n.dev
}

// Logger returns the node's structured logger.
func (n *Node) Logger() *zap.SugaredLogger {
	return n.log
}

// Disklabel returns the device's child disklabel, or nil if none is
// present.
func (n *Node) Disklabel() dlcore.Disklabel {
	return n.disklabel
}

// SetDisklabel installs d as the device's child disklabel, taking
// ownership of the reference the caller already holds (it is released
// when the device node itself is released, or when a new disklabel
// replaces it).
func (n *Node) SetDisklabel(d dlcore.Disklabel) {
	if n.disklabel != nil {
		n.disklabel.Unref()
	}

	n.disklabel = d
}

// Commit flows depth-first from the device's disklabel down through every
// nested disklabel, writing each mutated structure back to the device in
// the order specified per-format (§4.5/§4.6/§4.7). It fails with
// EInternal if the device has no disklabel.
func (n *Node) Commit() error {
	if n.disklabel == nil {
		return dlerrors.New(dlerrors.KindInternal, "commit: device has no disklabel")
	}

	n.log.Debugw("committing disklabel", "system", n.disklabel.System())

	return n.disklabel.Commit()
}
