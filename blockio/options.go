// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package blockio

import (
	"strconv"
	"strings"

	pointer "github.com/siderolabs/go-pointer"

	"github.com/gpartitions/disklabel/dlerrors"
)

// Parameter names four per-device values recognized by the module-open
// suboption string and by get_parameter/set_parameter; see §6.
type Parameter int

// Recognized parameters, case-insensitive on the wire.
const (
	ParameterCylinders Parameter = iota
	ParameterHeads
	ParameterSectors
	ParameterSectorSize
	parameterUnknown
)

var parameterNames = map[string]Parameter{
	"cylinders":   ParameterCylinders,
	"heads":       ParameterHeads,
	"sectors":     ParameterSectors,
	"sector-size": ParameterSectorSize,
}

// ParseParameter resolves a case-insensitive parameter name, failing with
// EParameter when unrecognized.
func ParseParameter(name string) (Parameter, error) {
	if p, ok := parameterNames[strings.ToLower(name)]; ok {
		return p, nil
	}

	return parameterUnknown, dlerrors.Newf(dlerrors.KindParameter, "unknown parameter %q", name).WithField("name")
}

func (p Parameter) String() string {
	for name, v := range parameterNames {
		if v == p {
			return name
		}
	}

	return "unknown"
}

// Options holds the geometry overrides recognized from the module's
// comma-separated suboption string (readonly, cylinders=N, heads=N,
// sectors=N, sector-size=N).
type Options struct {
	ReadOnly   bool
	Cylinders  *uint32
	Heads      *uint32
	Sectors    *uint32
	SectorSize *uint32
}

// ParseOptions parses a comma-separated suboption string such as
// "readonly,cylinders=1024,heads=255".
func ParseOptions(s string) (Options, error) {
	var opts Options

	if s == "" {
		return opts, nil
	}

	for _, kv := range strings.Split(s, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}

		name, value, hasValue := strings.Cut(kv, "=")
		name = strings.ToLower(strings.TrimSpace(name))

		switch name {
		case "readonly":
			opts.ReadOnly = true
		case "cylinders", "heads", "sectors", "sector-size":
			if !hasValue {
				return Options{}, dlerrors.Newf(dlerrors.KindParameter, "option %q requires a value", name).WithField(name)
			}

			n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
			if err != nil {
				return Options{}, dlerrors.Newf(dlerrors.KindParameter, "invalid value for %q: %v", name, err).WithField(name)
			}

			v := uint32(n)

			switch name {
			case "cylinders":
				opts.Cylinders = pointer.To(v)
			case "heads":
				opts.Heads = pointer.To(v)
			case "sectors":
				opts.Sectors = pointer.To(v)
			case "sector-size":
				opts.SectorSize = pointer.To(v)
			}
		default:
			return Options{}, dlerrors.Newf(dlerrors.KindParameter, "unknown option %q", name).WithField(name)
		}
	}

	return opts, nil
}

// GetParameter reads one of the four parameters from a device, returning it
// as a native signed 64-bit value (the wire convention described in §6).
func GetParameter(dev BlockDevice, p Parameter) (int64, error) {
	switch p {
	case ParameterCylinders:
		v, err := dev.Cylinders()

		return int64(v), err
	case ParameterHeads:
		v, err := dev.Heads()

		return int64(v), err
	case ParameterSectors:
		v, err := dev.SectorsPerTrack()

		return int64(v), err
	case ParameterSectorSize:
		return int64(dev.SectorSize()), nil
	default:
		return 0, dlerrors.Newf(dlerrors.KindParameter, "unknown parameter %v", p)
	}
}

// ValidateParameterSize checks the payload size rule from §6:
// set_parameter/get_parameter payloads must be exactly the width of a
// native signed 64-bit integer.
func ValidateParameterSize(n int) error {
	const nativeInt64Width = 8
	if n != nativeInt64Width {
		return dlerrors.Newf(dlerrors.KindParameterSize, "parameter payload must be %d bytes, got %d", nativeInt64Width, n)
	}

	return nil
}
