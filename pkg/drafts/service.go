// Package drafts is the draft/publish storage engine: it treats a remote
// repository's branches as a multi-writer content store with a shared
// mutable draft branch, atomic multi-file commits and SHA-based optimistic
// concurrency.
//
// One Service instance per process is the intended deployment: the branch
// existence cache, identity cache and in-flight creation registry are
// per-instance state, and the single-flight guarantee on branch creation
// only holds for callers sharing an instance.
package drafts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/draftforge/draftforge/pkg/cache"
	"github.com/draftforge/draftforge/pkg/githost"
	"github.com/draftforge/draftforge/pkg/logging"
)

const (
	// DefaultDraftBranch is the single shared draft branch. It is shared
	// by all editors on purpose: per-user branches would fragment
	// concurrent edits into unmergeable histories.
	DefaultDraftBranch = "cms-draft"

	DefaultExistenceTTL   = 30 * time.Second
	DefaultCommitAttempts = 3
	DefaultRetryBaseDelay = 500 * time.Millisecond

	existenceCacheSize = 1024
	identityCacheSize  = 16
	identityExpiry     = 24 * 365 * time.Hour
)

var (
	ErrBranchNotFound        = errors.New("branch not found")
	ErrDefaultBranchNotFound = errors.New("default branch not found")
)

// DelayFn sleeps between commit retry attempts. Replaced in tests.
type DelayFn func(dur time.Duration)

// Params configures a Service. Zero values get defaults.
type Params struct {
	Client         *githost.Client
	ExistenceTTL   time.Duration
	CommitAttempts int
	RetryBaseDelay time.Duration
	DelayFn        DelayFn
	Logger         logging.Logger
}

type Service struct {
	client    *githost.Client
	inFlight  *cache.OnlyOne
	existence *cache.GetSetCache
	identity  *cache.GetSetCache
	attempts  int
	baseDelay time.Duration
	delayFn   DelayFn
	log       logging.Logger
}

func NewService(p Params) *Service {
	ttl := p.ExistenceTTL
	if ttl == 0 {
		ttl = DefaultExistenceTTL
	}
	attempts := p.CommitAttempts
	if attempts == 0 {
		attempts = DefaultCommitAttempts
	}
	baseDelay := p.RetryBaseDelay
	if baseDelay == 0 {
		baseDelay = DefaultRetryBaseDelay
	}
	delayFn := p.DelayFn
	if delayFn == nil {
		delayFn = time.Sleep
	}
	log := p.Logger
	if log == nil {
		log = logging.Default()
	}
	return &Service{
		client:    p.Client,
		inFlight:  cache.NewOnlyOne(),
		existence: cache.NewCacheByParams(&cache.Params{Name: "branch_existence", Size: existenceCacheSize, Expiry: ttl}),
		identity:  cache.NewCacheByParams(&cache.Params{Name: "identity", Size: identityCacheSize, Expiry: identityExpiry}),
		attempts:  attempts,
		baseDelay: baseDelay,
		delayFn:   delayFn,
		log:       log,
	}
}

// EnsureBranch guarantees branch exists, creating it from the default
// branch's current tip when absent. Concurrent calls for the same name
// collapse onto a single creation attempt and observe the same outcome; at
// most one creation network call per branch name is in flight at any time
// within a process.
func (s *Service) EnsureBranch(ctx context.Context, name string) error {
	_, err := s.inFlight.Compute(name, func() (interface{}, error) {
		exists, err := s.BranchExists(ctx, name)
		if err != nil {
			return nil, err
		}
		if exists {
			return name, nil
		}
		if err := s.createFromDefault(ctx, name); err != nil {
			return nil, err
		}
		// drop the cached negative result so the next check sees the new branch
		s.existence.Remove(name)
		return name, nil
	})
	return err
}

func (s *Service) createFromDefault(ctx context.Context, name string) error {
	defaultBranch, err := s.client.GetDefaultBranch(ctx)
	if err != nil {
		return fmt.Errorf("resolve default branch: %w", err)
	}
	tip, found, err := s.client.GetBranchRef(ctx, defaultBranch)
	if err != nil {
		return fmt.Errorf("read tip of %s: %w", defaultBranch, err)
	}
	if !found {
		return fmt.Errorf("%s: %w", defaultBranch, ErrDefaultBranchNotFound)
	}
	s.log.WithContext(ctx).WithFields(logging.Fields{
		logging.BranchFieldKey: name,
		"from_branch":          defaultBranch,
		"from_sha":             tip,
	}).Info("creating branch")
	return s.client.CreateBranch(ctx, name, tip)
}

// BranchExists reports whether branch exists on the remote. Results are
// cached per branch name for the configured TTL; stale entries are lazily
// superseded on the next check.
func (s *Service) BranchExists(ctx context.Context, name string) (bool, error) {
	v, err := s.existence.GetOrSet(name, func() (interface{}, error) {
		_, found, err := s.client.GetBranchRef(ctx, name)
		if err != nil {
			return nil, err
		}
		return found, nil
	})
	if errors.Is(err, cache.ErrCacheItemNotFound) {
		// another caller held the load lock and failed; look up directly
		_, found, err := s.client.GetBranchRef(ctx, name)
		return found, err
	}
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// DeleteBranch removes the branch ref and evicts it from the existence
// cache so a later EnsureBranch recreates it.
func (s *Service) DeleteBranch(ctx context.Context, name string) error {
	if err := s.client.DeleteBranch(ctx, name); err != nil {
		return err
	}
	s.existence.Remove(name)
	return nil
}

// Publish merges the from branch into the into branch using the remote's
// merge operation. Merge conflicts are surfaced untouched; this engine does
// not resolve them.
func (s *Service) Publish(ctx context.Context, from, into, message string) (githost.MergeResult, error) {
	return s.client.Merge(ctx, into, from, message)
}

// AuthenticatedUser returns the login behind the active credential, cached
// per credential fingerprint so swapping tokens in one process never
// returns a stale identity.
func (s *Service) AuthenticatedUser(ctx context.Context) (string, error) {
	key := "user:" + tokenFingerprint(s.client.Token())
	v, err := s.identity.GetOrSet(key, func() (interface{}, error) {
		return s.client.GetAuthenticatedUser(ctx)
	})
	if errors.Is(err, cache.ErrCacheItemNotFound) {
		return s.client.GetAuthenticatedUser(ctx)
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

const fingerprintLen = 8

// tokenFingerprint keys the identity cache: enough of the token tail to
// distinguish rotated credentials, never a usable secret.
func tokenFingerprint(token string) string {
	if len(token) <= fingerprintLen {
		return token
	}
	return token[len(token)-fingerprintLen:]
}

// FileContent reads the decoded file at path on ref (branch or commit SHA).
// Absent paths are ("", false, nil).
func (s *Service) FileContent(ctx context.Context, path, ref string) (string, bool, error) {
	return s.client.GetFileContent(ctx, path, ref)
}

// DefaultBranch resolves the repository's default branch, fresh every call.
func (s *Service) DefaultBranch(ctx context.Context) (string, error) {
	return s.client.GetDefaultBranch(ctx)
}

// ListCommits returns one page of branch history, newest first. A branch
// that never existed yields an empty page.
func (s *Service) ListCommits(ctx context.Context, branch string, page, perPage int) ([]githost.CommitSummary, error) {
	return s.client.ListCommits(ctx, branch, page, perPage)
}

// CommitDetail reads a commit's metadata and per-file change list.
func (s *Service) CommitDetail(ctx context.Context, sha string) (githost.CommitDetail, error) {
	return s.client.GetCommitDetail(ctx, sha)
}
