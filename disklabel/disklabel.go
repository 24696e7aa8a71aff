// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package disklabel implements the runtime disklabel dispatcher (C11):
// probing a device for an existing MBR or GPT, and constructing a fresh
// one of a named system on request.
package disklabel

import (
	"strings"

	"github.com/gpartitions/disklabel/blockio"
	"github.com/gpartitions/disklabel/device"
	"github.com/gpartitions/disklabel/dlcore"
	"github.com/gpartitions/disklabel/dlerrors"
	"github.com/gpartitions/disklabel/gpt"
	"github.com/gpartitions/disklabel/mbr"
	"github.com/gpartitions/disklabel/objtree"
)

// Probe implements §4.8: try an MBR probe first; if one of its entries is
// a GuidProtective (0xEE) slot, the GPT disklabel nested inside that entry
// is the effective disklabel, and the MBR itself is treated as a
// protective shell. Otherwise the MBR, if any, is the label. If the MBR
// magic mismatches, fall back to a direct GPT probe at the same sector,
// for legacy/non-hybrid layouts. Returns (nil, nil) if neither is present.
func Probe(dev blockio.BlockDevice, parent objtree.Node) (dlcore.Disklabel, error) {
	mbrLabel, err := mbr.Probe(dev, parent, 0)
	if err != nil {
		gptLabel, gptErr := gpt.Probe(dev, parent)
		if gptErr != nil {
			return nil, nil //nolint:nilerr // neither MBR nor GPT present is not itself an error
		}

		return gptLabel, nil
	}

	for _, p := range mbrLabel.Partitions() {
		if p.Type() == "GUID" {
			if gptLabel, ok := p.Disklabel().(*gpt.Label); ok {
				return gptLabel, nil
			}
		}
	}

	return mbrLabel, nil
}

// Open builds a DeviceNode over dev and probes it for an existing
// disklabel, installing one if found. It is not an error for no disklabel
// to be present; callers that need one call Create next.
func Open(dev blockio.BlockDevice, opts ...device.Option) (*device.Node, error) {
	node := device.New(dev, opts...)

	label, err := Probe(dev, node)
	if err != nil {
		return nil, err
	}

	if label != nil {
		node.SetDisklabel(label)
	}

	return node, nil
}

// Create implements §4.8: system is a case-insensitive tag in {MBR, GPT};
// anything else fails EDisklabelSystem.
func Create(dev blockio.BlockDevice, parent objtree.Node, system string) (dlcore.Disklabel, error) {
	switch strings.ToUpper(system) {
	case "MBR":
		return mbr.New(dev, parent, 0), nil
	case "GPT":
		return gpt.New(dev, parent)
	default:
		return nil, dlerrors.Newf(dlerrors.KindDisklabelSystem, "disklabel: unknown system %q", system).WithField("system")
	}
}
