// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package objtree implements the polymorphic Device/Disklabel/Partition
// node tree shared by every disklabel variant: reference counting, upward
// casting to an ancestor of a requested kind, and the start/end sector
// range every node exposes.
//
// Concrete node types (device.Node, the mbr/ebr/gpt disklabels, their
// partition variants) embed Base for Kind/Parent/ref-counting and
// implement Start/End themselves, since those differ per variant.
package objtree

import (
	"sync/atomic"

	"github.com/gpartitions/disklabel/dlerrors"
)

// Kind discriminates the three node categories in the tree.
type Kind int

// Node kinds.
const (
	KindDevice Kind = iota
	KindDisklabel
	KindPartition
)

func (k Kind) String() string {
	switch k {
	case KindDevice:
		return "device"
	case KindDisklabel:
		return "disklabel"
	case KindPartition:
		return "partition"
	default:
		return "unknown"
	}
}

// Node is the capability shared by every node in the tree.
type Node interface {
	Kind() Kind
	// Parent returns the enclosing node, or nil for the root Device.
	Parent() Node
	Start() uint64
	End() uint64
}

// Base implements reference counting and Kind/Parent for a Node. Concrete
// types embed *Base and add their own Start/End methods.
type Base struct {
	kind     Kind
	parent   Node
	count    int32
	releaser func()
}

// NewBase creates a Base with an initial reference count of 1. releaser is
// invoked exactly once, when the count transitions to zero; it is
// responsible for releasing the node's own resources and unref'ing its
// children.
func NewBase(kind Kind, parent Node, releaser func()) *Base {
	return &Base{kind: kind, parent: parent, count: 1, releaser: releaser}
}

// Kind implements Node.
func (b *Base) Kind() Kind {
	return b.kind
}

// Parent implements Node.
func (b *Base) Parent() Node {
	return b.parent
}

// Ref increments the reference count.
func (b *Base) Ref() {
	atomic.AddInt32(&b.count, 1)
}

// Unref decrements the reference count, invoking the releaser the instant
// it reaches zero. Unref-ing an already-zero node is a caller bug and
// panics, matching the source's treatment of a double-free as an
// unrecoverable invariant violation.
func (b *Base) Unref() {
	n := atomic.AddInt32(&b.count, -1)

	switch {
	case n == 0:
		if b.releaser != nil {
			b.releaser()
		}
	case n < 0:
		panic("objtree: Unref of node with zero reference count")
	}
}

// RefCount returns the current reference count.
func (b *Base) RefCount() int32 {
	return atomic.LoadInt32(&b.count)
}

// Cast walks the parent chain starting at n (inclusive) and returns the
// nearest node of the requested kind. It fails with EInternal if none is
// found, matching the source's object_cast behavior.
func Cast(n Node, target Kind) (Node, error) {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Kind() == target {
			return cur, nil
		}
	}

	return nil, dlerrors.Newf(dlerrors.KindInternal, "cast: no ancestor of kind %s", target)
}
