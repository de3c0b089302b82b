// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package keys_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/keys"
)

func TestKeyPairOperations(t *testing.T) {
	kp, err := keys.Generate(keys.DefaultBits)
	require.NoError(t, err, "Generate() error")

	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Modulus Size",
			testFunc: func(t *testing.T) {
				assert.Equal(t, 2048, kp.Bits())
				assert.Equal(t, kp.Private.PublicKey.N, kp.Public().N)
			},
		},
		{
			name: "PEM Round Trip",
			testFunc: func(t *testing.T) {
				encoded := kp.EncodePEM()
				block, _ := pem.Decode(encoded)
				require.NotNil(t, block)
				assert.Equal(t, "RSA PRIVATE KEY", block.Type)

				parsed, err := keys.ParsePEM(encoded)
				require.NoError(t, err)
				assert.True(t, kp.Private.Equal(parsed.Private), "parsed key differs from original")
			},
		},
		{
			name: "Parse PKCS8",
			testFunc: func(t *testing.T) {
				der, err := x509.MarshalPKCS8PrivateKey(kp.Private)
				require.NoError(t, err)

				parsed, err := keys.ParsePEM(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
				require.NoError(t, err)
				assert.True(t, kp.Private.Equal(parsed.Private))
			},
		},
		{
			name: "Parse Garbage",
			testFunc: func(t *testing.T) {
				_, err := keys.ParsePEM([]byte("not a key"))
				assert.ErrorIs(t, err, keys.ErrParseKey)
			},
		},
		{
			name: "Parse Non-RSA",
			testFunc: func(t *testing.T) {
				ec, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
				require.NoError(t, err)
				der, err := x509.MarshalECPrivateKey(ec)
				require.NoError(t, err)

				_, err = keys.ParsePEM(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
				assert.ErrorIs(t, err, keys.ErrNotRSA)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}

func TestGenerate_RejectsSmallModulus(t *testing.T) {
	_, err := keys.Generate(1024)
	assert.ErrorIs(t, err, keys.ErrKeySize)
}
