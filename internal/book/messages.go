// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package book

import (
	"fmt"
	"math"

	"github.com/DjCaptainPlus/WarpBook/internal/warp"
)

const (
	msgNoWarpName       = "You must enter a warp name."
	msgDuplicate        = "A warp with that name already exists."
	msgPermissionDenied = "You do not have permission to change that warp."
	msgWarpGone         = "That warp no longer exists."
	msgPlayerOffline    = "That player is not online."
	msgOutgoingPending  = "You already have a pending teleport request."
	msgRequestGone      = "That teleport request no longer exists."
)

func msgCreated(name string) string {
	return fmt.Sprintf("Created Warp: %s.", name)
}

func msgGlobalCreated(owner, name string) string {
	return fmt.Sprintf("%s Created Global Warp: %s.", owner, name)
}

func msgEdited(name string) string {
	return fmt.Sprintf("Saved changes to %s.", name)
}

func msgRelocated(name string) string {
	return fmt.Sprintf("Updated location of %s", name)
}

func msgDeleted(name string) string {
	return fmt.Sprintf("Deleted %s", name)
}

func msgTeleported(name string) string {
	return fmt.Sprintf("Teleported to %s", name)
}

func msgQuickWarpSet(name string) string {
	return fmt.Sprintf("%s is now your quick warp.", name)
}

func msgInvalid(action string, err error) string {
	return fmt.Sprintf("Could not %s: %v", action, err)
}

func msgFailed(action string) string {
	return fmt.Sprintf("Could not %s. Please try again.", action)
}

// warpLabel renders a warp as a two-line button label: its name, then its
// dimension and block coordinates.
func warpLabel(w *warp.Warp) string {
	return fmt.Sprintf("%s\n%s: (%d,%d,%d)", w.Name, w.DimensionLabel(),
		int64(math.Floor(w.Location.X)), int64(math.Floor(w.Location.Y)), int64(math.Floor(w.Location.Z)))
}
