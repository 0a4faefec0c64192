package roster

import (
	"context"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/utils"
	"github.com/rs/zerolog/log"
)

const MembersSubscription = "firebrands.roster.members-sub"

type rosterBridge struct {
	service *Service
}

func (b *rosterBridge) handleMemberObserved(ctx context.Context, message *gcppubsub.Message) {
	log.Debug().Msg("Received message payload " + string(message.Data))
	if b.apply(ctx, message.Data) {
		message.Ack()
		return
	}
	message.Nack()
}

// apply reports whether the message is done with. Malformed payloads and
// refused departures are dropped, storage failures are redelivered.
func (b *rosterBridge) apply(ctx context.Context, data []byte) bool {
	payload, err := utils.JsonDecodeByteStream[MemberObserved](data)
	if err != nil {
		log.Warn().Err(err).Msg("Error while parsing MemberObserved message")
		return true
	}

	err = b.service.Apply(ctx, *payload, time.Now())
	switch {
	case err == nil:
		return true
	case errors.Is(err, reject.ErrStorageUnavailable):
		log.Warn().Err(err).Str("actorId", payload.ActorId).Msg("Error while handling MemberObserved")
		return false
	default:
		log.Info().Err(err).Str("actorId", payload.ActorId).Msg("Roster change refused")
		return true
	}
}
