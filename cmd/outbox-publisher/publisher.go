package main

import (
	"context"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// publisherCache opens one Pub/Sub publisher per topic. An injected factory
// replaces the Pub/Sub client entirely.
type publisherCache struct {
	client   pubSubClient
	override publisherFactory
	byTopic  map[string]publisher
	opened   []*gcppubsub.Publisher
}

func newPublisherCache(client pubSubClient, override publisherFactory) *publisherCache {
	return &publisherCache{client: client, override: override, byTopic: map[string]publisher{}}
}

func (c *publisherCache) get(topic string) publisher {
	if c.override != nil {
		return c.override(topic)
	}
	if pub, ok := c.byTopic[topic]; ok {
		return pub
	}
	raw := c.client.Publisher(topic)
	if raw == nil {
		return nil
	}
	pub := gcpPublisher{raw}
	c.byTopic[topic] = pub
	c.opened = append(c.opened, raw)
	return pub
}

func (c *publisherCache) stop() {
	for _, p := range c.opened {
		p.Stop()
	}
	c.opened = nil
	c.byTopic = map[string]publisher{}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return gcpPublishResult{p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r.PublishResult == nil {
		return "", errNilResult
	}
	return r.PublishResult.Get(ctx)
}
