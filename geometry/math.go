// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package geometry

import "github.com/gpartitions/disklabel/dlerrors"

// RoundDown rounds v down to the nearest multiple of grain.
func RoundDown(v, grain uint64) (uint64, error) {
	if grain == 0 {
		return 0, dlerrors.New(dlerrors.KindInternal, "round: grain must not be zero")
	}

	return (v / grain) * grain, nil
}

// RoundUp rounds v up to the nearest multiple of grain.
func RoundUp(v, grain uint64) (uint64, error) {
	if grain == 0 {
		return 0, dlerrors.New(dlerrors.KindInternal, "round: grain must not be zero")
	}

	return ((v + grain - 1) / grain) * grain, nil
}

// Round rounds v to the nearest multiple of grain, ties breaking toward
// RoundDown.
func Round(v, grain uint64) (uint64, error) {
	down, err := RoundDown(v, grain)
	if err != nil {
		return 0, err
	}

	up, err := RoundUp(v, grain)
	if err != nil {
		return 0, err
	}

	if up == down {
		return down, nil
	}

	// Tie (v exactly halfway) breaks toward down.
	if (v - down) > (up - v) {
		return up, nil
	}

	return down, nil
}
