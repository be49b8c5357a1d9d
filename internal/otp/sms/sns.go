package sms

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// snsPublisher is the subset of the SNS client the sender calls. *sns.Client satisfies it.
type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSender delivers codes as transactional SMS through Amazon SNS.
type SNSSender struct {
	client snsPublisher
}

// NewSNSSender returns a sender backed by client.
func NewSNSSender(client snsPublisher) *SNSSender {
	return &SNSSender{client: client}
}

// NewSNSSenderFromEnv loads the default AWS credential chain for region.
func NewSNSSenderFromEnv(ctx context.Context, region string) (*SNSSender, error) {
	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sns sms: load aws config: %w", err)
	}
	return NewSNSSender(sns.NewFromConfig(cfg)), nil
}

func (s *SNSSender) SendOTP(ctx context.Context, phone, code string) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(fmt.Sprintf("Your verification code is: %s", code)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sns sms: send otp: %w", err)
	}
	return nil
}
