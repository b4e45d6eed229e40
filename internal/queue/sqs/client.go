package sqs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	envConfig "github.com/BarkinBalci/event-ingestion-service/internal/config"
	"github.com/BarkinBalci/event-ingestion-service/internal/dto"
)

// Client represents an SQS client for scrape triggers
type Client struct {
	client *sqs.Client
	config envConfig.SQS
	log    *zap.Logger
}

// NewClient creates a new SQS client
func NewClient(ctx context.Context, sqsCfg envConfig.SQS, log *zap.Logger) (*Client, error) {
	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(sqsCfg.Region),
	}

	var clientOpts []func(*sqs.Options)

	// ElasticMQ or LocalStack in local development
	if sqsCfg.Endpoint != "" {
		log.Info("Configuring SQS for local development",
			zap.String("endpoint", sqsCfg.Endpoint))
		configOpts = append(configOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")))

		clientOpts = append(clientOpts, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(sqsCfg.Endpoint)
		})
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	sqsClient := sqs.NewFromConfig(awsCfg, clientOpts...)

	log.Info("SQS client created",
		zap.String("region", sqsCfg.Region),
		zap.String("queue_url", sqsCfg.QueueURL))

	return &Client{
		client: sqsClient,
		config: sqsCfg,
		log:    log,
	}, nil
}

// ReceiveMessages receives messages from SQS
func (c *Client) ReceiveMessages(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
	return c.client.ReceiveMessage(ctx, input)
}

// DeleteMessage deletes a message from SQS
func (c *Client) DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error) {
	return c.client.DeleteMessage(ctx, input)
}

// QueueURL returns the configured queue URL
func (c *Client) QueueURL() string {
	return c.config.QueueURL
}

// ChangeMessageVisibility changes the visibility timeout of a received message
func (c *Client) ChangeMessageVisibility(ctx context.Context, input *sqs.ChangeMessageVisibilityInput) (*sqs.ChangeMessageVisibilityOutput, error) {
	return c.client.ChangeMessageVisibility(ctx, input)
}

// PublishTrigger sends a scrape trigger and returns the SQS message id
func (c *Client) PublishTrigger(ctx context.Context, trigger *dto.ScrapeTrigger) (string, error) {
	body, err := json.Marshal(trigger)
	if err != nil {
		return "", fmt.Errorf("failed to marshal trigger: %w", err)
	}

	attrs := map[string]types.MessageAttributeValue{
		"Kind": {
			DataType:    aws.String("String"),
			StringValue: aws.String("scrape"),
		},
	}
	if trigger.UserEmail != "" {
		attrs["UserEmail"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(trigger.UserEmail),
		}
	}

	out, err := c.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(c.config.QueueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attrs,
	})
	if err != nil {
		c.log.Error("Failed to send trigger to SQS",
			zap.Strings("scrapers", trigger.ScraperNames),
			zap.Error(err))
		return "", fmt.Errorf("failed to send message to SQS: %w", err)
	}

	messageID := aws.ToString(out.MessageId)
	c.log.Info("Scrape trigger published to SQS",
		zap.String("message_id", messageID),
		zap.Strings("scrapers", trigger.ScraperNames))

	return messageID, nil
}
