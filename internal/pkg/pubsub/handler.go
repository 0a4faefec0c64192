package pubsub

import (
	"context"

	"cloud.google.com/go/pubsub"
)

type SubscriptionHandler struct {
	SubscriptionId string
	Handler        func(ctx context.Context, message *pubsub.Message)
}

type Publishable interface {
	GetEventTopicName() string
}

// Publisher is what services depend on; the pub/sub client and Noop
// satisfy it.
type Publisher interface {
	Publish(message Publishable)
}

type Noop struct{}

func (Noop) Publish(Publishable) {}
