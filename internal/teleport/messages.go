// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package teleport

import (
	"fmt"

	"github.com/DjCaptainPlus/WarpBook/internal/scheduler"
)

func msgSent(to string, timeout scheduler.Ticks) string {
	return fmt.Sprintf("You requested to teleport to %s.\nThis request will expire in %s.", to, seconds(timeout))
}

func msgReceived(from string, timeout scheduler.Ticks) string {
	return fmt.Sprintf("%s has requested to teleport to you. Accept or decline using your Warp Book.\nThis request will expire in %s.", from, seconds(timeout))
}

func msgExpiredSender(to string) string {
	return fmt.Sprintf("Teleport request to %s has expired.", to)
}

func msgExpiredReceiver(from string) string {
	return fmt.Sprintf("Teleport request from %s has expired.", from)
}

func msgSenderOffline(from string) string {
	return fmt.Sprintf("%s is not online.", from)
}

func msgAccepted(to string) string {
	return fmt.Sprintf("%s accepted your teleport request.", to)
}

func msgArrived(from string) string {
	return fmt.Sprintf("%s teleported to you.", from)
}

func msgDeclined(to string) string {
	return fmt.Sprintf("%s declined your teleport request.", to)
}

func msgCancelledReceiver(from string) string {
	return fmt.Sprintf("%s canceled their teleport request.", from)
}

func msgCancelledSender(to string) string {
	return fmt.Sprintf("Canceled teleport request to %s.", to)
}

func msgBulkFailed(verb, from string) string {
	return fmt.Sprintf("Unable to %s teleport request from %s.", verb, from)
}

func msgBulkDone(accept bool) string {
	if accept {
		return "Accepted all teleport requests."
	}
	return "Declined all teleport requests."
}

func seconds(t scheduler.Ticks) string {
	return fmt.Sprintf("%g seconds", t.Duration().Seconds())
}
