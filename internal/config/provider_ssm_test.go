package config

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSSMClient implements ssmClient for testing.
type mockSSMClient struct {
	responses map[string]string // parameter name -> value
	invalid   []string
	err       error
	batches   [][]string
}

func (m *mockSSMClient) GetParameters(_ context.Context, params *ssm.GetParametersInput, _ ...func(*ssm.Options)) (*ssm.GetParametersOutput, error) {
	m.batches = append(m.batches, params.Names)
	if m.err != nil {
		return nil, m.err
	}

	out := &ssm.GetParametersOutput{}
	for _, name := range params.Names {
		if v, ok := m.responses[name]; ok {
			out.Parameters = append(out.Parameters, ssmtypes.Parameter{
				Name:  aws.String(name),
				Value: aws.String(v),
			})
		}
	}
	out.InvalidParameters = m.invalid
	return out, nil
}

func TestSSMProviderGetParametersBatch(t *testing.T) {
	client := &mockSSMClient{
		responses: map[string]string{
			"/prod/riskprofile/riskfactor/key": "rf_live_abc",
			"/prod/riskprofile/redis/password": "hunter2",
		},
	}
	p := newSSMProviderWithClient("us-east-1", client)

	got, err := p.GetParametersBatch(context.Background(),
		[]string{"/prod/riskprofile/riskfactor/key", "/prod/riskprofile/redis/password"})
	require.NoError(t, err)
	assert.Equal(t, "rf_live_abc", got["/prod/riskprofile/riskfactor/key"])
	assert.Equal(t, "hunter2", got["/prod/riskprofile/redis/password"])
	assert.Len(t, client.batches, 1)
}

func TestSSMProviderBatchesOverAPILimit(t *testing.T) {
	responses := make(map[string]string)
	var keys []string
	for i := 0; i < 13; i++ {
		name := string(rune('a'+i)) + "-param"
		responses[name] = "v"
		keys = append(keys, name)
	}
	client := &mockSSMClient{responses: responses}
	p := newSSMProviderWithClient("us-east-1", client)

	got, err := p.GetParametersBatch(context.Background(), keys)
	require.NoError(t, err)
	assert.Len(t, got, 13)
	// 13 keys with a batch limit of 10 means exactly two API calls.
	require.Len(t, client.batches, 2)
	assert.Len(t, client.batches[0], 10)
	assert.Len(t, client.batches[1], 3)
}

func TestSSMProviderInvalidParameters(t *testing.T) {
	client := &mockSSMClient{
		responses: map[string]string{},
		invalid:   []string{"/prod/riskprofile/missing"},
	}
	p := newSSMProviderWithClient("us-east-1", client)

	_, err := p.GetParametersBatch(context.Background(), []string{"/prod/riskprofile/missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/prod/riskprofile/missing")
}

func TestSSMProviderAPIError(t *testing.T) {
	client := &mockSSMClient{err: errors.New("access denied")}
	p := newSSMProviderWithClient("us-east-1", client)

	_, err := p.GetParametersBatch(context.Background(), []string{"/a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestSSMProviderCancelledContext(t *testing.T) {
	client := &mockSSMClient{responses: map[string]string{"/a": "1"}}
	p := newSSMProviderWithClient("us-east-1", client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.GetParametersBatch(ctx, []string{"/a"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSSMProviderEmptyKeys(t *testing.T) {
	p := NewSSMProvider("us-east-1")
	got, err := p.GetParametersBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEnvVarProvider(t *testing.T) {
	t.Setenv("RISKPROFILE_TEST_SECRET", "shhh")

	p := NewEnvVarProvider()
	got, err := p.GetParametersBatch(context.Background(),
		[]string{"RISKPROFILE_TEST_SECRET", "RISKPROFILE_TEST_ABSENT"})
	require.NoError(t, err)
	assert.Equal(t, "shhh", got["RISKPROFILE_TEST_SECRET"])
	_, present := got["RISKPROFILE_TEST_ABSENT"]
	assert.False(t, present, "missing keys are omitted, not errored")
}
