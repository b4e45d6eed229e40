package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/dto"
)

func testMessage(body string) types.Message {
	return types.Message{
		MessageId:     aws.String("msg-1"),
		Body:          aws.String(body),
		ReceiptHandle: aws.String("receipt-1"),
		Attributes:    map[string]string{"ApproximateReceiveCount": "2"},
	}
}

func TestParserStage_Start_Success(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockParser := new(MockTriggerParser)
	stage := NewParserStage(mockConsumer, mockParser, zap.NewNop())

	trigger := &dto.ScrapeTrigger{ScraperNames: []string{"konserthuset"}}
	mockParser.On("Parse", []byte(`{"scraperNames":["konserthuset"]}`)).Return(trigger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan types.Message, 1)
	out := make(chan *Envelope, 1)
	go stage.Start(ctx, in, out)

	in <- testMessage(`{"scraperNames":["konserthuset"]}`)
	close(in)

	envelope := <-out
	require.NotNil(t, envelope)
	assert.Same(t, trigger, envelope.Trigger)
	assert.Equal(t, "msg-1", envelope.MessageID)
	assert.Equal(t, 2, envelope.ReceiveCount)

	_, ok := <-out
	assert.False(t, ok, "output closes after input closes")
	mockConsumer.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything)
}

func TestParserStage_Start_MalformedMessageIsDeleted(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockParser := new(MockTriggerParser)
	stage := NewParserStage(mockConsumer, mockParser, zap.NewNop())

	mockConsumer.On("QueueURL").Return(testQueueURL)
	mockConsumer.On("DeleteMessage", mock.Anything, mock.MatchedBy(func(in *sqs.DeleteMessageInput) bool {
		return aws.ToString(in.ReceiptHandle) == "receipt-1"
	})).Return(&sqs.DeleteMessageOutput{}, nil)
	mockParser.On("Parse", []byte(`{invalid json}`)).Return(nil, errors.New("invalid JSON format"))

	in := make(chan types.Message, 1)
	out := make(chan *Envelope, 1)
	in <- testMessage(`{invalid json}`)
	close(in)

	stage.Start(context.Background(), in, out)

	_, ok := <-out
	assert.False(t, ok, "no envelope for a malformed message")
	mockConsumer.AssertExpectations(t)
}

func TestEnvelope_Callbacks(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockParser := new(MockTriggerParser)
	stage := NewParserStage(mockConsumer, mockParser, zap.NewNop())

	mockConsumer.On("QueueURL").Return(testQueueURL)
	mockParser.On("Parse", mock.Anything).Return(&dto.ScrapeTrigger{}, nil)
	mockConsumer.On("DeleteMessage", mock.Anything, mock.Anything).Return(&sqs.DeleteMessageOutput{}, nil).Once()
	mockConsumer.On("ChangeMessageVisibility", mock.Anything, mock.MatchedBy(func(in *sqs.ChangeMessageVisibilityInput) bool {
		return in.VisibilityTimeout == 0
	})).Return(&sqs.ChangeMessageVisibilityOutput{}, nil).Once()
	mockConsumer.On("ChangeMessageVisibility", mock.Anything, mock.MatchedBy(func(in *sqs.ChangeMessageVisibilityInput) bool {
		return in.VisibilityTimeout == 120
	})).Return(&sqs.ChangeMessageVisibilityOutput{}, nil).Once()

	env := stage.parseMessage(context.Background(), testMessage(`{}`))
	require.NotNil(t, env)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, env.Extend(ctx, 120))
	assert.NoError(t, env.Nack(ctx))
	assert.NoError(t, env.Ack(ctx))
	mockConsumer.AssertExpectations(t)
}
