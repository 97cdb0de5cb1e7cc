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

package github

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Logger lets a Client log every method call; nil disables logging.
type Logger interface {
	Printf(s string, v ...interface{})
}

// GifSearcher resolves a GIF search query to a URL. The real lookup
// implementation is out of this engine's scope (spec.md §1); a noop
// searcher is the default so the "gif" command and its tests are
// complete without a real image-search backend wired in.
type GifSearcher interface {
	Search(query string) (string, error)
}

type noopGifSearcher struct{}

func (noopGifSearcher) Search(string) (string, error) { return "", nil }

// Client is a strongly-typed wrapper over the hosting platform's REST
// surface: pulls, issues, comments, labels, reviews, check runs, commit
// statuses and GIF search.
type Client struct {
	// If Logger is non-nil, log all method calls with it.
	Logger Logger
	Gif    GifSearcher

	client *http.Client
	token  string
	base   string
	dry    bool
	fake   bool
}

const (
	defaultBase = "https://api.github.com"
	maxRetries  = 8
	retryDelay  = 2 * time.Second
)

// NewClient creates a new fully operational host client.
func NewClient(token, base string) *Client {
	if base == "" {
		base = defaultBase
	}
	return &Client{client: &http.Client{}, token: token, base: base, Gif: noopGifSearcher{}}
}

// NewDryRunClient creates a client that queries the host but performs no
// mutating actions (comments, statuses, labels, merges).
func NewDryRunClient(token, base string) *Client {
	c := NewClient(token, base)
	c.dry = true
	return c
}

// NewFakeClient creates a client that performs no actions at all and
// returns zero values; used by tests that never hit the network.
func NewFakeClient() *Client {
	return &Client{fake: true, dry: true, Gif: noopGifSearcher{}}
}

func (c *Client) log(methodName string, args ...interface{}) {
	if c.Logger == nil {
		return
	}
	var as []string
	for _, arg := range args {
		as = append(as, fmt.Sprintf("%v", arg))
	}
	c.Logger.Printf("%s(%s)", methodName, strings.Join(as, ", "))
}

// request retries on transport failures; it does not retry on 4xx/5xx.
func (c *Client) request(method, path string, body, out interface{}) (*http.Response, error) {
	var resp *http.Response
	var err error
	backoff := retryDelay
	for retries := 0; retries < maxRetries; retries++ {
		resp, err = c.doRequest(method, path, body)
		if err == nil {
			break
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	if err != nil {
		return nil, err
	}
	if out != nil {
		defer resp.Body.Close()
		b, rerr := io.ReadAll(resp.Body)
		if rerr != nil {
			return resp, rerr
		}
		if len(b) > 0 {
			if jerr := json.Unmarshal(b, out); jerr != nil {
				return resp, jerr
			}
		}
	}
	return resp, nil
}

func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		buf = bytes.NewBuffer(b)
	}
	req, err := http.NewRequest(method, path, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Add("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Content-Type", "application/json")
	// Disable keep-alive: avoids flakes when the host closes the
	// connection prematurely under load.
	req.Close = true
	return c.client.Do(req)
}

func unexpectedStatus(resp *http.Response) error {
	return fmt.Errorf("unexpected status: %s", resp.Status)
}

// GetPullRequest gets a pull request.
func (c *Client) GetPullRequest(owner, repo string, number int) (*PullRequest, error) {
	c.log("GetPullRequest", owner, repo, number)
	if c.fake {
		return &PullRequest{Number: number}, nil
	}
	var pr PullRequest
	resp, err := c.request(http.MethodGet, fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.base, owner, repo, number), nil, &pr)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus(resp)
	}
	return &pr, nil
}

// ListReviews returns every review submitted on a pull request, in
// submission order (oldest first), unfiltered and undeduped.
func (c *Client) ListReviews(owner, repo string, number int) ([]Review, error) {
	c.log("ListReviews", owner, repo, number)
	if c.fake {
		return nil, nil
	}
	var reviews []Review
	resp, err := c.request(http.MethodGet, fmt.Sprintf("%s/repos/%s/%s/pulls/%d/reviews?per_page=100", c.base, owner, repo, number), nil, &reviews)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus(resp)
	}
	return reviews, nil
}

// GetCombinedStatus returns the host's folded view of every status
// context on ref.
func (c *Client) GetCombinedStatus(owner, repo, ref string) (*CombinedStatus, error) {
	c.log("GetCombinedStatus", owner, repo, ref)
	if c.fake {
		return &CombinedStatus{State: StatusStatePending}, nil
	}
	var cs CombinedStatus
	resp, err := c.request(http.MethodGet, fmt.Sprintf("%s/repos/%s/%s/commits/%s/status", c.base, owner, repo, ref), nil, &cs)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus(resp)
	}
	return &cs, nil
}

// CreateStatus creates or updates the status of a commit.
func (c *Client) CreateStatus(owner, repo, ref string, s Status) error {
	c.log("CreateStatus", owner, repo, ref, s)
	if c.dry {
		return nil
	}
	resp, err := c.request(http.MethodPost, fmt.Sprintf("%s/repos/%s/%s/statuses/%s", c.base, owner, repo, ref), s, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return unexpectedStatus(resp)
	}
	return nil
}

// CreateComment creates a comment on the issue/pull request.
func (c *Client) CreateComment(owner, repo string, number int, body string) (*IssueComment, error) {
	c.log("CreateComment", owner, repo, number, body)
	if c.dry {
		return &IssueComment{ID: 0, Body: body}, nil
	}
	var ic IssueComment
	resp, err := c.request(http.MethodPost, fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", c.base, owner, repo, number), IssueComment{Body: body}, &ic)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, unexpectedStatus(resp)
	}
	return &ic, nil
}

// UpdateComment edits an existing comment's body in place.
func (c *Client) UpdateComment(owner, repo string, commentID int, body string) error {
	c.log("UpdateComment", owner, repo, commentID, body)
	if c.dry {
		return nil
	}
	resp, err := c.request(http.MethodPatch, fmt.Sprintf("%s/repos/%s/%s/issues/comments/%d", c.base, owner, repo, commentID), IssueComment{Body: body}, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return unexpectedStatus(resp)
	}
	return nil
}

// CommentExists reports whether the host still recognises commentID.
// The status updater uses this to decide whether to create a replacement
// summary comment when the stored id has gone stale.
func (c *Client) CommentExists(owner, repo string, commentID int) (bool, error) {
	c.log("CommentExists", owner, repo, commentID)
	if c.fake {
		return true, nil
	}
	resp, err := c.request(http.MethodGet, fmt.Sprintf("%s/repos/%s/%s/issues/comments/%d", c.base, owner, repo, commentID), nil, nil)
	if err != nil {
		return false, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, unexpectedStatus(resp)
	}
	return true, nil
}

// AddReaction adds an emoji reaction to a comment.
func (c *Client) AddReaction(owner, repo string, commentID int, kind ReactionKind) error {
	c.log("AddReaction", owner, repo, commentID, kind)
	if c.dry {
		return nil
	}
	resp, err := c.request(http.MethodPost, fmt.Sprintf("%s/repos/%s/%s/issues/comments/%d/reactions", c.base, owner, repo, commentID), map[string]string{"content": string(kind)}, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return unexpectedStatus(resp)
	}
	return nil
}

// ListIssueLabels lists the labels currently applied to an issue/PR.
func (c *Client) ListIssueLabels(owner, repo string, number int) ([]Label, error) {
	c.log("ListIssueLabels", owner, repo, number)
	if c.fake {
		return nil, nil
	}
	var labels []Label
	resp, err := c.request(http.MethodGet, fmt.Sprintf("%s/repos/%s/%s/issues/%d/labels", c.base, owner, repo, number), nil, &labels)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus(resp)
	}
	return labels, nil
}

// AddLabel applies a label to an issue/PR.
func (c *Client) AddLabel(owner, repo string, number int, label string) error {
	c.log("AddLabel", owner, repo, number, label)
	if c.dry {
		return nil
	}
	resp, err := c.request(http.MethodPost, fmt.Sprintf("%s/repos/%s/%s/issues/%d/labels", c.base, owner, repo, number), []string{label}, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return unexpectedStatus(resp)
	}
	return nil
}

// RemoveLabel removes a label from an issue/PR.
func (c *Client) RemoveLabel(owner, repo string, number int, label string) error {
	c.log("RemoveLabel", owner, repo, number, label)
	if c.dry {
		return nil
	}
	resp, err := c.request(http.MethodDelete, fmt.Sprintf("%s/repos/%s/%s/issues/%d/labels/%s", c.base, owner, repo, number, label), nil, nil)
	if err != nil {
		return err
	}
	// The host sometimes returns 200 for this call, which is a bug on its end.
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return unexpectedStatus(resp)
	}
	return nil
}

// RequestReviewers requests the named users as reviewers on a pull request.
func (c *Client) RequestReviewers(owner, repo string, number int, logins []string) error {
	c.log("RequestReviewers", owner, repo, number, logins)
	if c.dry || len(logins) == 0 {
		return nil
	}
	resp, err := c.request(http.MethodPost, fmt.Sprintf("%s/repos/%s/%s/pulls/%d/requested_reviewers", c.base, owner, repo, number), map[string][]string{"reviewers": logins}, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return unexpectedStatus(resp)
	}
	return nil
}

// RemoveRequestedReviewers withdraws a pending review request.
func (c *Client) RemoveRequestedReviewers(owner, repo string, number int, logins []string) error {
	c.log("RemoveRequestedReviewers", owner, repo, number, logins)
	if c.dry || len(logins) == 0 {
		return nil
	}
	resp, err := c.request(http.MethodDelete, fmt.Sprintf("%s/repos/%s/%s/pulls/%d/requested_reviewers", c.base, owner, repo, number), map[string][]string{"reviewers": logins}, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return unexpectedStatus(resp)
	}
	return nil
}

// GetPermissionLevel returns user's permission level against owner/repo.
func (c *Client) GetPermissionLevel(owner, repo, user string) (RepoPermissionLevel, error) {
	c.log("GetPermissionLevel", owner, repo, user)
	if c.fake {
		return Write, nil
	}
	var res struct {
		Permission string `json:"permission"`
	}
	resp, err := c.request(http.MethodGet, fmt.Sprintf("%s/repos/%s/%s/collaborators/%s/permission", c.base, owner, repo, user), nil, &res)
	if err != nil {
		return None, err
	}
	if resp.StatusCode != http.StatusOK {
		return None, unexpectedStatus(resp)
	}
	switch res.Permission {
	case "admin":
		return Admin, nil
	case "write":
		return Write, nil
	case "read":
		return Read, nil
	default:
		return None, nil
	}
}

// Merge merges a pull request using the given details.
func (c *Client) Merge(owner, repo string, number int, details MergeDetails) error {
	c.log("Merge", owner, repo, number, details)
	if c.dry {
		return nil
	}
	resp, err := c.request(http.MethodPut, fmt.Sprintf("%s/repos/%s/%s/pulls/%d/merge", c.base, owner, repo, number), details, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return unexpectedStatus(resp)
	}
	return nil
}

// SearchGif resolves a GIF search query via the configured GifSearcher.
func (c *Client) SearchGif(query string) (string, error) {
	c.log("SearchGif", query)
	if c.Gif == nil {
		return "", nil
	}
	return c.Gif.Search(query)
}
