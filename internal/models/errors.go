// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

package models

import "errors"

// ErrRemoteNotFound reports that the remote store holds no row for the
// requested id. It is part of the remote persistence contract, shared by
// the client implementation and the synchronizer that consumes it.
var ErrRemoteNotFound = errors.New("remote entity not found")
