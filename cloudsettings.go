// Copyright 2021 Chris Schnaufer.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package canopycover

// This file contains site specific cloud settings; change this if you
// want to use the S3 backed storage against your own buckets.

// Storage bucket names
const (
	storageScans = "fieldscanscans"
)
