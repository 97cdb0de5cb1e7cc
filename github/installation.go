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

package github

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// NewAppJWT signs a short-lived JSON Web Token identifying a GitHub App,
// used to exchange for an installation access token. appID is the "iss"
// claim; key is the app's RSA private key.
func NewAppJWT(appID string, key *rsa.PrivateKey) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iat": now.Add(-30 * time.Second).Unix(),
		"exp": now.Add(9 * time.Minute).Unix(),
		"iss": appID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing app JWT: %w", err)
	}
	return signed, nil
}

// ResolveToken returns the bearer token the host client should authenticate
// with: the static token if configured, otherwise an installation token
// minted from the app credentials. installationTokenFn performs the actual
// "POST /app/installations/{id}/access_tokens" exchange; it is a function
// value (not a method) so callers can stub it out in tests without a fake
// HTTP transport.
func ResolveToken(staticToken string, appJWT string, installationID string, installationTokenFn func(jwt, installationID string) (string, error)) (string, error) {
	if staticToken != "" {
		return staticToken, nil
	}
	if installationTokenFn == nil {
		return "", fmt.Errorf("no static token and no installation token resolver configured")
	}
	return installationTokenFn(appJWT, installationID)
}
