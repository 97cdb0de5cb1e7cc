/*
Copyright 2019 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifyTokenRoundTrip(t *testing.T) {
	publicPEM, privatePEM, err := GenerateKeyPair()
	require.NoError(t, err)

	priv, err := ParsePrivateKey(privatePEM)
	require.NoError(t, err)
	pub, err := ParsePublicKey(publicPEM)
	require.NoError(t, err)

	token, err := IssueToken("ci-bot", priv)
	require.NoError(t, err)

	sub, err := VerifyToken(token, pub)
	require.NoError(t, err)
	require.Equal(t, "ci-bot", sub)
}

func TestVerifyTokenRejectsWrongKey(t *testing.T) {
	_, privatePEM, err := GenerateKeyPair()
	require.NoError(t, err)
	otherPublicPEM, _, err := GenerateKeyPair()
	require.NoError(t, err)

	priv, err := ParsePrivateKey(privatePEM)
	require.NoError(t, err)
	otherPub, err := ParsePublicKey(otherPublicPEM)
	require.NoError(t, err)

	token, err := IssueToken("ci-bot", priv)
	require.NoError(t, err)

	_, err = VerifyToken(token, otherPub)
	require.Error(t, err)
}
