package hash

import (
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashers(t *testing.T) {
	t.Parallel()

	fastArgon := &argon2id.Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

	tests := []struct {
		name   string
		hasher Hasher
	}{
		{name: "bcrypt", hasher: Bcrypt{Cost: bcrypt.MinCost}},
		{name: "argon2id", hasher: Argon2ID{Params: fastArgon}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			digest, err := tt.hasher.Hash("Secret123!")
			require.NoError(t, err)
			assert.NotEqual(t, "Secret123!", digest)

			assert.True(t, tt.hasher.Verify("Secret123!", digest))
			assert.False(t, tt.hasher.Verify("secret123!", digest))
			assert.False(t, tt.hasher.Verify("Secret123!", "not-a-digest"))

			again, err := tt.hasher.Hash("Secret123!")
			require.NoError(t, err)
			assert.NotEqual(t, digest, again, "digests must be salted")
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	h, err := New("")
	require.NoError(t, err)
	assert.IsType(t, Bcrypt{}, h)

	h, err = New(MethodArgon2ID)
	require.NoError(t, err)
	assert.IsType(t, Argon2ID{}, h)

	_, err = New("md5")
	require.Error(t, err)
}
