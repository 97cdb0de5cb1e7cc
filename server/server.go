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

// Package server exposes the engine over HTTP: the webhook intake that
// hook/server.go's ServeHTTP/demuxEvent plays for Prow, and the external QA
// status surface from spec.md §4.9. Event handling runs on a small worker
// pool instead of hook/server.go's unbounded goroutine-per-event, so the
// response to GitHub comes back immediately without the request handler
// itself blocking on downstream work.
package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/clarketm/scbot-engine/command"
	"github.com/clarketm/scbot-engine/config"
	"github.com/clarketm/scbot-engine/crypto"
	"github.com/clarketm/scbot-engine/executor"
	"github.com/clarketm/scbot-engine/github"
	"github.com/clarketm/scbot-engine/lock"
	"github.com/clarketm/scbot-engine/router"
	"github.com/clarketm/scbot-engine/store"
)

// Server wires the HTTP surface to a Router, dispatching webhook events onto
// a bounded worker pool so a slow downstream refresh never blocks the
// webhook response.
type Server struct {
	log      *logrus.Entry
	cfg      *config.Config
	store    store.Store
	lock     lock.Lock
	host     github.HostClient
	router   *router.Router
	executor *executor.Executor

	jobs chan func()
}

// New builds a Server and starts its worker pool.
func New(log *logrus.Entry, cfg *config.Config, s store.Store, l lock.Lock, host github.HostClient, r *router.Router, exec *executor.Executor) *Server {
	workers := cfg.ServerWorkerCount
	if workers < 1 {
		workers = 1
	}
	srv := &Server{
		log:      log,
		cfg:      cfg,
		store:    s,
		lock:     l,
		host:     host,
		router:   r,
		executor: exec,
		jobs:     make(chan func(), 256),
	}
	for i := 0; i < workers; i++ {
		go srv.worker()
	}
	return srv
}

func (s *Server) worker() {
	for job := range s.jobs {
		job()
	}
}

// enqueue hands fn to the worker pool. If the queue is full, fn runs on its
// own goroutine rather than blocking the caller, matching hook/server.go's
// "never let dispatch stall the webhook response" guarantee.
func (s *Server) enqueue(fn func()) {
	select {
	case s.jobs <- fn:
	default:
		go fn()
	}
}

// Engine builds the gin engine serving every route.
func (s *Server) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/webhook", s.handleWebhook)
	r.POST("/external/set-qa-status", s.handleSetQAStatus)
	return r
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "scbot-engine"})
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"store": err.Error()})
		return
	}
	if err := s.lock.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"lock": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// validSignature reports whether sig (the raw "X-Hub-Signature-256" header
// value, "sha256=" prefixed) matches the HMAC-SHA256 of body under secret.
func validSignature(body []byte, sig, secret string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(sig, prefix) {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := prefix + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sig))
}

// handleWebhook verifies the request's signature (when configured to) and
// dispatches the decoded payload to the matching Router method. No body is
// parsed and no store side effect occurs before signature verification
// passes.
func (s *Server) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read request body"})
		return
	}

	if s.cfg.WebhookSignatureVerify {
		sig := c.GetHeader("X-Hub-Signature-256")
		if sig == "" {
			c.Status(http.StatusUnauthorized)
			return
		}
		if !validSignature(body, sig, s.cfg.WebhookSecret) {
			c.Status(http.StatusForbidden)
			return
		}
	}

	eventType := c.GetHeader("X-GitHub-Event")
	l := s.log.WithField("event-type", eventType)

	switch eventType {
	case "ping":
		var e github.PingEvent
		if err := json.Unmarshal(body, &e); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ping payload"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"zen": s.router.HandlePing(e)})

	case "pull_request":
		var e github.PullRequestEvent
		if err := json.Unmarshal(body, &e); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pull_request payload"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "event received"})
		s.enqueue(func() {
			if err := s.router.HandlePullRequest(e); err != nil {
				l.WithError(err).Warn("handling pull_request event")
			}
		})

	case "issue_comment":
		var e github.IssueCommentEvent
		if err := json.Unmarshal(body, &e); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid issue_comment payload"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "event received"})
		s.enqueue(func() {
			if err := s.router.HandleIssueComment(e); err != nil {
				l.WithError(err).Warn("handling issue_comment event")
			}
		})

	case "pull_request_review":
		var e github.PullRequestReviewEvent
		if err := json.Unmarshal(body, &e); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pull_request_review payload"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "event received"})
		s.enqueue(func() {
			if err := s.router.HandlePullRequestReview(e); err != nil {
				l.WithError(err).Warn("handling pull_request_review event")
			}
		})

	case "check_suite":
		var e github.CheckSuiteEvent
		if err := json.Unmarshal(body, &e); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid check_suite payload"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "event received"})
		s.enqueue(func() {
			if err := s.router.HandleCheckSuite(e); err != nil {
				l.WithError(err).Warn("handling check_suite event")
			}
		})

	default:
		c.JSON(http.StatusOK, gin.H{"message": "event ignored"})
	}
}

type setQAStatusRequest struct {
	RepositoryPath     string `json:"repository_path"`
	PullRequestNumbers []int  `json:"pull_request_numbers"`
	Author             string `json:"author"`
	Status             *bool  `json:"status"`
}

// synthesizeQACommand maps the endpoint's tri-state status field to the
// user command vocabulary: null means "clear to waiting", true/false mean
// pass/fail, exactly the "noqa-"/"qa+"/"qa-" commands a human would type.
func synthesizeQACommand(status *bool) command.UserCommand {
	if status == nil {
		return command.UserCommand{Kind: command.KindNoQA, Enabled: false}
	}
	return command.UserCommand{Kind: command.KindQA, Enabled: *status}
}

func splitRepositoryPath(path string) (owner, name string, ok bool) {
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// verifyExternalToken parses tokenString, looks up the external account
// named by its "iss" claim, and validates the signature against that
// account's stored public key — the key is only known once the claim is
// read, so the lookup happens inside the keyfunc jwt.Parse calls after
// decoding (but before validating) the token.
func (s *Server) verifyExternalToken(tokenString string) (string, error) {
	var username string
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		claims, ok := t.Claims.(jwt.MapClaims)
		if !ok {
			return nil, fmt.Errorf("unexpected claims type")
		}
		iss, _ := claims["iss"].(string)
		if iss == "" {
			return nil, fmt.Errorf("missing iss claim")
		}
		account, err := s.store.GetExternalAccount(iss)
		if err != nil {
			return nil, fmt.Errorf("unknown external account %q: %w", iss, err)
		}
		username = account.Username
		return crypto.ParsePublicKey(account.PublicKeyPEM)
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	return username, nil
}

// handleSetQAStatus authenticates the caller as an ExternalAccount, checks
// it holds a right on the target repository, then for each listed pull
// request that exists locally runs a synthesised qa command through the
// executor and queues a status refresh — per spec.md §4.9, the handler
// replies before that work necessarily finishes.
func (s *Server) handleSetQAStatus(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		c.Status(http.StatusUnauthorized)
		return
	}
	username, err := s.verifyExternalToken(strings.TrimPrefix(auth, prefix))
	if err != nil {
		c.Status(http.StatusUnauthorized)
		return
	}

	var req setQAStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	owner, name, ok := splitRepositoryPath(req.RepositoryPath)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid repository_path"})
		return
	}
	repo, err := s.store.GetRepositoryByName(owner, name)
	if err != nil {
		c.Status(http.StatusForbidden)
		return
	}
	allowed, err := s.store.HasExternalAccountRight(username, repo.ID)
	if err != nil || !allowed {
		c.Status(http.StatusForbidden)
		return
	}

	cmd := synthesizeQACommand(req.Status)
	l := s.log.WithFields(logrus.Fields{"repo": req.RepositoryPath, "external_account": username})

	for _, number := range req.PullRequestNumbers {
		pr, err := s.store.GetPullRequest(repo.ID, number)
		if err != nil {
			continue
		}
		number := number
		s.enqueue(func() {
			upstream, err := s.host.GetPullRequest(owner, name, number)
			if err != nil {
				l.WithError(err).Warn("fetching pull request for external qa status")
				return
			}
			ctx := executor.Context{
				Config:      s.cfg,
				Store:       s.store,
				Host:        s.host,
				Owner:       owner,
				RepoName:    name,
				Number:      number,
				Repository:  repo,
				PullRequest: pr,
				Upstream:    upstream,
				Author:      req.Author,
			}
			if err := s.executor.RunTrusted(ctx, []command.Result{{User: &cmd}}); err != nil {
				l.WithError(err).Warn("running synthesised qa command")
			}
		})
	}

	c.String(http.StatusAccepted, "Set QA status.")
}
