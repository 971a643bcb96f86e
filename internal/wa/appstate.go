package wa

import (
	"time"

	"github.com/wafleet/wafleet/internal/transport"
	"go.mau.fi/whatsmeow/appstate"
	"go.mau.fi/whatsmeow/proto/waSyncAction"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"
)

// buildDeleteMessageForMe constructs the app-state mutation for a local
// message delete. whatsmeow ships builders for archive, mute and pin but not
// this action, so the patch is assembled by hand following the same index
// layout the official web client uses.
func buildDeleteMessageForMe(chat types.JID, ref transport.MessageRef) appstate.PatchInfo {
	participant := "0"
	if !ref.FromMe && ref.Sender != "" {
		participant = ref.Sender
	}
	return appstate.PatchInfo{
		Timestamp: time.Now(),
		Type:      appstate.WAPatchRegularHigh,
		Mutations: []appstate.MutationInfo{{
			Index: []string{
				"deleteMessageForMe",
				chat.String(),
				ref.ID,
				boolDigit(ref.FromMe),
				participant,
			},
			Version: 3,
			Value: &waSyncAction.SyncActionValue{
				DeleteMessageForMeAction: &waSyncAction.DeleteMessageForMeAction{
					DeleteMedia:      proto.Bool(true),
					MessageTimestamp: proto.Int64(ref.Timestamp),
				},
			},
		}},
	}
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
