package envelope

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jllopis/agora/pkg/errors"
)

func newTestSealer() *Sealer {
	return NewSealer(StaticKeyProvider("agora-test-secret"))
}

func TestSealOpenRoundTrip(t *testing.T) {
	s := newTestSealer()
	plaintext := []byte(`{"id":"audit_1","agent":"Developer","action":"data_access"}`)
	ts := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	env, err := s.Seal("audit_1", ts, plaintext)
	require.NoError(t, err)
	assert.True(t, env.Encrypted)
	assert.Equal(t, "audit_1", env.ID)
	assert.Equal(t, ts, env.Timestamp)
	assert.NotEmpty(t, env.Hash)
	assert.NotContains(t, env.Data, "Developer")

	recovered, err := s.Open(env)
	require.NoError(t, err)
	assert.Equal(t, plaintext, recovered)
}

func TestSealIsDeterministic(t *testing.T) {
	s := newTestSealer()
	plaintext := []byte("same input")

	a, err := s.Seal("id", time.Now(), plaintext)
	require.NoError(t, err)
	b, err := s.Seal("id", time.Now(), plaintext)
	require.NoError(t, err)

	assert.Equal(t, a.Data, b.Data)
	assert.Equal(t, a.Hash, b.Hash)
}

func TestOpenTamperedCiphertext(t *testing.T) {
	s := newTestSealer()
	env, err := s.Seal("id", time.Now(), []byte("sensitive payload"))
	require.NoError(t, err)

	// Flip one character of the base64 ciphertext.
	data := []byte(env.Data)
	if data[0] == 'A' {
		data[0] = 'B'
	} else {
		data[0] = 'A'
	}
	env.Data = string(data)

	_, err = s.Open(env)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeIntegrity))
}

func TestOpenTamperedHash(t *testing.T) {
	s := newTestSealer()
	env, err := s.Seal("id", time.Now(), []byte("sensitive payload"))
	require.NoError(t, err)

	hash := []byte(env.Hash)
	if hash[0] == '0' {
		hash[0] = '1'
	} else {
		hash[0] = '0'
	}
	env.Hash = string(hash)

	// The AEAD accepts the untouched ciphertext, so only the digest
	// comparison can catch this.
	_, err = s.Open(env)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeIntegrity))
}

func TestOpenWrongKey(t *testing.T) {
	env, err := newTestSealer().Seal("id", time.Now(), []byte("payload"))
	require.NoError(t, err)

	other := NewSealer(StaticKeyProvider("a-different-secret"))
	_, err = other.Open(env)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeIntegrity))
}

func TestOpenMalformedData(t *testing.T) {
	s := newTestSealer()
	env, err := s.Seal("id", time.Now(), []byte("payload"))
	require.NoError(t, err)

	env.Data = "%%% not base64 %%%"
	_, err = s.Open(env)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeIntegrity))
}

func TestEnvKeyProvider(t *testing.T) {
	t.Setenv("AGORA_TEST_KEY", "from-env")
	key, err := EnvKeyProvider{Var: "AGORA_TEST_KEY"}.CurrentKey()
	require.NoError(t, err)
	assert.Equal(t, []byte("from-env"), key)

	_, err = EnvKeyProvider{Var: "AGORA_TEST_KEY_UNSET"}.CurrentKey()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}
