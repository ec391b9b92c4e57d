package mock

import (
	"testing"

	"github.com/aws/aws-sdk-go/service/sns"
)

// SNSAPI mocks the SNS publish surface used by the notification code.
type SNSAPI struct {
	*Expector
}

// NewSNSAPI returns a mock SNS client that records and verifies Publish calls.
func NewSNSAPI(t testing.TB) *SNSAPI {
	return &SNSAPI{&Expector{T: t}}
}

func (s *SNSAPI) Publish(in *sns.PublishInput) (*sns.PublishOutput, error) {
	rets := s.Record(in)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].(*sns.PublishOutput), SafeError(rets[1])
}
