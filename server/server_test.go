/*
Copyright 2016 The Kubernetes Authors.

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

package server

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/clarketm/scbot-engine/config"
	"github.com/clarketm/scbot-engine/crypto"
	"github.com/clarketm/scbot-engine/executor"
	"github.com/clarketm/scbot-engine/github"
	lockmemory "github.com/clarketm/scbot-engine/lock/memory"
	"github.com/clarketm/scbot-engine/prsync"
	"github.com/clarketm/scbot-engine/router"
	"github.com/clarketm/scbot-engine/store"
	"github.com/clarketm/scbot-engine/store/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRefresher struct{ calls int }

func (f *fakeRefresher) Refresh(owner, name string, number int) error {
	f.calls++
	return nil
}

func newTestServer(t *testing.T, secret string, verify bool) (*Server, *github.FakeClient, store.Store, *fakeRefresher) {
	t.Helper()
	s := memory.New()
	l := lockmemory.New(0)
	host := github.NewFakeHostClient()
	cfg := &config.Config{
		BotHandle:                 "@bot",
		WebhookSecret:             secret,
		WebhookSignatureVerify:    verify,
		ServerWorkerCount:         2,
		ExpectedCIApplicationSlug: "github-actions",
	}
	refresher := &fakeRefresher{}
	exec := executor.New(logrus.NewEntry(logrus.New()), refresher)
	syncer := prsync.New(s, cfg)
	r := router.New(logrus.NewEntry(logrus.New()), cfg, s, host, syncer, exec, refresher)
	srv := New(logrus.NewEntry(logrus.New()), cfg, s, l, host, r, exec)
	return srv, host, s, refresher
}

func signedRequest(t *testing.T, secret, eventType string, body []byte, signed bool) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", eventType)
	req.Header.Set("Content-Type", "application/json")
	if signed {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}
	return req
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	srv, _, _, _ := newTestServer(t, "s3cret", true)
	body, err := json.Marshal(github.PingEvent{Zen: "hi"})
	require.NoError(t, err)
	req := signedRequest(t, "s3cret", "ping", body, false)

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	srv, _, _, _ := newTestServer(t, "s3cret", true)
	body, err := json.Marshal(github.PingEvent{Zen: "hi"})
	require.NoError(t, err)
	req := signedRequest(t, "wrong-secret", "ping", body, true)

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestWebhookPingReturnsZen(t *testing.T) {
	srv, _, _, _ := newTestServer(t, "s3cret", true)
	body, err := json.Marshal(github.PingEvent{Zen: "design for failure"})
	require.NoError(t, err)
	req := signedRequest(t, "s3cret", "ping", body, true)

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "design for failure")
}

func TestWebhookPullRequestDispatchesAsynchronously(t *testing.T) {
	srv, _, s, refresher := newTestServer(t, "", false)
	e := github.PullRequestEvent{
		Action: github.PullRequestActionOpened,
		Number: 7,
		Repo:   github.Repo{Owner: github.User{Login: "acme"}, Name: "widgets"},
		Sender: github.User{Login: "alice"},
		PullRequest: github.PullRequest{
			Number: 7,
			User:   github.User{Login: "alice"},
			Base:   github.PullRequestBranch{Ref: "main"},
			Head:   github.PullRequestBranch{Ref: "feature"},
		},
	}
	body, err := json.Marshal(e)
	require.NoError(t, err)
	req := signedRequest(t, "", "pull_request", body, false)

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.Eventually(t, func() bool {
		repo, err := s.GetRepositoryByName("acme", "widgets")
		if err != nil {
			return false
		}
		_, err = s.GetPullRequest(repo.ID, 7)
		return err == nil && refresher.calls > 0
	}, time.Second, 5*time.Millisecond)
}

func TestHealthReportsOk(t *testing.T) {
	srv, _, _, _ := newTestServer(t, "", false)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSetQAStatusRequiresBearerToken(t *testing.T) {
	srv, _, _, _ := newTestServer(t, "", false)
	req := httptest.NewRequest(http.MethodPost, "/external/set-qa-status", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSetQAStatusRunsCommandAndQueuesRefresh(t *testing.T) {
	srv, host, s, refresher := newTestServer(t, "", false)

	publicPEM, privatePEM, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	priv, err := crypto.ParsePrivateKey(privatePEM)
	require.NoError(t, err)
	_, err = s.UpsertExternalAccount(store.ExternalAccount{Username: "ci-system", PublicKeyPEM: publicPEM})
	require.NoError(t, err)

	repo, err := s.GetOrCreateRepository("acme", "widgets", store.RepositoryDefaults{})
	require.NoError(t, err)
	_, err = s.GetOrCreatePullRequest(repo.ID, 42, store.PullRequestDefaults{})
	require.NoError(t, err)
	require.NoError(t, s.AddExternalAccountRight("ci-system", repo.ID))

	host.PullRequests[42] = &github.PullRequest{Number: 42}
	host.Permissions["qa-bot"] = github.Write

	token, err := crypto.IssueToken("ci-system", priv)
	require.NoError(t, err)

	status := true
	reqBody, err := json.Marshal(setQAStatusRequest{
		RepositoryPath:     "acme/widgets",
		PullRequestNumbers: []int{42, 999},
		Author:             "qa-bot",
		Status:             &status,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/external/set-qa-status", bytes.NewReader(reqBody))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, "Set QA status.", w.Body.String())

	require.Eventually(t, func() bool {
		return refresher.calls > 0
	}, time.Second, 5*time.Millisecond)
}

func TestSetQAStatusRejectsAccountWithoutRepositoryRight(t *testing.T) {
	srv, _, s, _ := newTestServer(t, "", false)

	publicPEM, privatePEM, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	priv, err := crypto.ParsePrivateKey(privatePEM)
	require.NoError(t, err)
	_, err = s.UpsertExternalAccount(store.ExternalAccount{Username: "ci-system", PublicKeyPEM: publicPEM})
	require.NoError(t, err)

	_, err = s.GetOrCreateRepository("acme", "widgets", store.RepositoryDefaults{})
	require.NoError(t, err)

	token, err := crypto.IssueToken("ci-system", priv)
	require.NoError(t, err)

	reqBody, err := json.Marshal(setQAStatusRequest{RepositoryPath: "acme/widgets", PullRequestNumbers: []int{1}, Author: "qa-bot"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/external/set-qa-status", bytes.NewReader(reqBody))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}
