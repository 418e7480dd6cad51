package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/soledrop/soledrop-backend/pkg/config"
	"github.com/soledrop/soledrop-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopic           = errors.New("pubsub catalog topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client publishes catalog events to a single project.
type Client struct {
	client    *pubsub.Client
	projectID string
	topic     string
	settings  pubsub.PublishSettings
}

// NewClient connects to Pub/Sub, or to the emulator when one is configured,
// and fails if the catalog topic is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}

	raw, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp, cfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{
		client:    raw,
		projectID: projectID,
		topic:     cfg.CatalogTopic,
		settings:  publishSettings(cfg),
	}
	if err := c.checkTopic(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"topic":    cfg.CatalogTopic,
			"emulator": cfg.EmulatorHost != "",
		}), "pubsub client initialized")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig, cfg config.PubSubConfig) []option.ClientOption {
	if host := strings.TrimSpace(cfg.EmulatorHost); host != "" {
		return []option.ClientOption{
			option.WithEndpoint(host),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		}
	}
	switch {
	case gcp.CredentialsJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case gcp.ApplicationCredentials != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

// publishSettings starts from the library defaults and overrides what is set.
func publishSettings(cfg config.PubSubConfig) pubsub.PublishSettings {
	settings := pubsub.DefaultPublishSettings
	if cfg.BatchDelay > 0 {
		settings.DelayThreshold = cfg.BatchDelay
	}
	if cfg.BatchCount > 0 {
		settings.CountThreshold = cfg.BatchCount
	}
	if cfg.PublishTimeout > 0 {
		settings.Timeout = cfg.PublishTimeout
	}
	return settings
}

func (c *Client) checkTopic(ctx context.Context) error {
	if strings.TrimSpace(c.topic) == "" {
		return errNoTopic
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{
		Topic: topicResourceName(c.projectID, c.topic),
	})
	switch {
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("topic %q does not exist", c.topic)
	case err != nil:
		return fmt.Errorf("checking topic %q: %w", c.topic, err)
	}
	return nil
}

// Publisher returns a publisher for a topic ID or full resource name, using
// the configured batching. Callers Stop it when done.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	fullName := topicResourceName(c.projectID, name)
	if fullName == "" {
		return nil
	}
	pub := c.client.Publisher(fullName)
	pub.PublishSettings = c.settings
	return pub
}

// Ping looks up the catalog topic.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.checkTopic(pingCtx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func topicResourceName(projectID, name string) string {
	n := strings.TrimSpace(name)
	switch {
	case n == "":
		return ""
	case strings.HasPrefix(n, "projects/") && strings.Contains(n, "/topics/"):
		return n
	}
	p := strings.TrimSpace(projectID)
	if p == "" {
		return ""
	}
	return "projects/" + p + "/topics/" + n
}
