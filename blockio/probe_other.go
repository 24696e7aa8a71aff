// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build !linux

package blockio

// probeGeometry leaves geometry undetermined on platforms without an
// ioctl-based probe; callers rely on the §6 suboption overrides or
// set_parameter instead.
func probeGeometry(d *FileDevice) {}
