package pubsub

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"github.com/kollektive-hackathon/firebrands-backend/internal/pkg/utils"
	"github.com/rs/zerolog/log"
)

type Client struct {
	ctx    context.Context
	client *pubsub.Client

	topicsMu sync.Mutex
	topics   map[string]*pubsub.Topic
}

func NewClient(ctx context.Context, projectID string) (*Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("pub sub missing projectID to initialize")
	}
	log.Info().Msg(fmt.Sprintf("Init pubsub with projectID:%v", projectID))

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("error initializing pub sub connection: %w", err)
	}
	log.Info().Msg("Successful pubsub init")

	return &Client{
		ctx:    ctx,
		client: client,
		topics: map[string]*pubsub.Topic{},
	}, nil
}

// Subscribe blocks receiving messages until the client context ends.
func (c *Client) Subscribe(subscriptionHandler SubscriptionHandler) {
	sub := c.client.Subscription(subscriptionHandler.SubscriptionId)
	err := sub.Receive(c.ctx, subscriptionHandler.Handler)
	if err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Subscriber error for sub id %s", subscriptionHandler.SubscriptionId))
	}
}

func (c *Client) Publish(message Publishable) {
	t := c.getTopic(message.GetEventTopicName())
	if t == nil {
		return
	}

	data, err := utils.JsonEncode(message)
	if err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Cannot encode message for %s", message.GetEventTopicName()))
		return
	}

	result := t.Publish(c.ctx, &pubsub.Message{Data: data})

	go func(res *pubsub.PublishResult) {
		_, err := res.Get(c.ctx)
		if err != nil {
			log.Warn().Err(err).Msg(fmt.Sprintf("Failed to publish message for %s", message.GetEventTopicName()))
		}
	}(result)
}

func (c *Client) Close() {
	c.topicsMu.Lock()
	for _, t := range c.topics {
		t.Stop()
	}
	c.topicsMu.Unlock()
	c.client.Close()
}

// EnsureTopics resolves the topics up front, creating missing ones, so the
// first publish does not pay for the round trips.
func (c *Client) EnsureTopics(topicNames ...string) error {
	for _, topicName := range topicNames {
		t, err := c.resolveTopic(topicName)
		if err != nil {
			return err
		}
		c.storeTopic(topicName, t)
	}
	return nil
}

func (c *Client) getTopic(topicName string) *pubsub.Topic {
	c.topicsMu.Lock()
	t, ok := c.topics[topicName]
	c.topicsMu.Unlock()
	if ok {
		return t
	}

	t, err := c.resolveTopic(topicName)
	if err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Cant resolve topic %s", topicName))
		return nil
	}
	return c.storeTopic(topicName, t)
}

// storeTopic keeps the first handle stored for topicName and returns it.
func (c *Client) storeTopic(topicName string, t *pubsub.Topic) *pubsub.Topic {
	c.topicsMu.Lock()
	defer c.topicsMu.Unlock()

	if stored, ok := c.topics[topicName]; ok {
		return stored
	}
	c.topics[topicName] = t
	return t
}

// resolveTopic talks to the broker and must not run under topicsMu.
func (c *Client) resolveTopic(topicName string) (*pubsub.Topic, error) {
	t := c.client.Topic(topicName)
	exists, err := t.Exists(c.ctx)
	if err != nil {
		return nil, fmt.Errorf("cant check topic %s: %w", topicName, err)
	}
	if exists {
		return t, nil
	}

	log.Info().Msg(fmt.Sprintf("Topic %s does not exist. Creating new", topicName))
	t, err = c.client.CreateTopic(c.ctx, topicName)
	if status.Code(err) == codes.AlreadyExists {
		return c.client.Topic(topicName), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cant create topic %s: %w", topicName, err)
	}
	return t, nil
}
