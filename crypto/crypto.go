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

// Package crypto generates and parses the RSA keypairs behind external
// accounts, and issues/verifies the JWTs they authenticate with against the
// external QA surface. It is the external-account twin of
// github.NewAppJWT/ResolveToken: same golang-jwt/jwt/v5 signing machinery,
// a different issuer.
package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 1 * time.Hour

// GenerateKeyPair creates a fresh 2048-bit RSA keypair, PEM-encoded in
// PKCS1 form, for a new external account.
func GenerateKeyPair() (publicPEM, privatePEM string, err error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return "", "", fmt.Errorf("generating RSA key: %w", err)
	}

	privateBytes := x509.MarshalPKCS1PrivateKey(key)
	privatePEM = string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: privateBytes,
	}))

	publicBytes := x509.MarshalPKCS1PublicKey(&key.PublicKey)
	publicPEM = string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: publicBytes,
	}))
	return publicPEM, privatePEM, nil
}

// ParsePrivateKey decodes a PEM-encoded PKCS1 RSA private key.
func ParsePrivateKey(privatePEM string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privatePEM))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in private key")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing RSA private key: %w", err)
	}
	return key, nil
}

// ParsePublicKey decodes a PEM-encoded PKCS1 RSA public key.
func ParsePublicKey(publicPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicPEM))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in public key")
	}
	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing RSA public key: %w", err)
	}
	return key, nil
}

// IssueToken signs a short-lived JWT identifying username, for an external
// account to present as a bearer token against the external QA surface.
func IssueToken(username string, key *rsa.PrivateKey) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": username,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing external account JWT: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and validates tokenString against key, returning the
// "iss" claim (the external account's username) on success.
func VerifyToken(tokenString string, key *rsa.PublicKey) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return "", fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type")
	}
	iss, ok := claims["iss"].(string)
	if !ok || iss == "" {
		return "", fmt.Errorf("missing iss claim")
	}
	return iss, nil
}
