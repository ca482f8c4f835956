package switcherr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_WrapsAndUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := New(KindSSHTransport, cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "ssh_transport")
	assert.Contains(t, err.Error(), "boom")
}

func TestNewf_FormatsMessage(t *testing.T) {
	err := Newf(KindProbeParse, "missing field %s", "identity")
	assert.Contains(t, err.Error(), "missing field identity")
}

func TestNewPhase_IncludesPhaseName(t *testing.T) {
	err := NewPhase("arming_source", errors.New("set-identity failed"))

	assert.Equal(t, KindSwitchPhaseFailure, err.Kind)
	assert.Equal(t, "arming_source", err.Phase)
	assert.Contains(t, err.Error(), "phase=arming_source")
}

func TestIs_MatchesClassifiedKind(t *testing.T) {
	err := New(KindStateDualActive, errors.New("both active"))

	assert.True(t, Is(err, KindStateDualActive))
	assert.False(t, Is(err, KindStateNoActive))
}

func TestIs_FalseForUnclassifiedError(t *testing.T) {
	assert.False(t, Is(errors.New("plain error"), KindRPCUnavailable))
}

func TestIs_SeesThroughWrapping(t *testing.T) {
	classified := New(KindSSHAuth, errors.New("permission denied"))
	wrapped := fmt.Errorf("dial host: %w", classified)

	assert.True(t, Is(wrapped, KindSSHAuth))
}
