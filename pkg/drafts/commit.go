package drafts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/draftforge/draftforge/pkg/githost"
	"github.com/draftforge/draftforge/pkg/logging"
)

// File is one entry of a multi-file commit.
type File struct {
	Path    string
	Content string
}

type commitOptions struct {
	ensureBranch bool
}

type CommitOption func(*commitOptions)

// WithoutEnsureBranch skips the ensure-branch step, for callers that have
// already guaranteed the branch exists.
func WithoutEnsureBranch() CommitOption {
	return func(o *commitOptions) {
		o.ensureBranch = false
	}
}

func applyCommitOptions(opts []CommitOption) commitOptions {
	o := commitOptions{ensureBranch: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// CommitFile commits a single file to branch with SHA-based optimistic
// concurrency. Every attempt re-reads the current blob SHA before writing;
// reusing a SHA across attempts would defeat the retry loop, since the
// point of retrying is to pick up a concurrent writer's change. On a
// conflict the loop backs off linearly (attempt number times the base
// delay) for up to the configured number of attempts; any other error
// propagates immediately.
func (s *Service) CommitFile(ctx context.Context, path, content, message, branch string, opts ...CommitOption) error {
	o := applyCommitOptions(opts)
	if o.ensureBranch {
		if err := s.EnsureBranch(ctx, branch); err != nil {
			return err
		}
	}
	encoded := githost.EncodeContent(content)
	log := s.log.WithContext(ctx).WithFields(logging.Fields{
		logging.BranchFieldKey: branch,
		logging.PathFieldKey:   path,
	})

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		sha, err := s.client.GetFileSHA(ctx, path, branch)
		if err != nil {
			return fmt.Errorf("read SHA of %s on %s: %w", path, branch, err)
		}
		err = s.client.PutFile(ctx, path, encoded, message, branch, sha)
		if err == nil {
			return nil
		}
		if !errors.Is(err, githost.ErrConflict) {
			return err
		}
		lastErr = err
		if attempt < s.attempts {
			delay := time.Duration(attempt) * s.baseDelay
			log.WithField(logging.AttemptFieldKey, attempt).
				WithError(err).
				Warnf("commit conflict, retrying in %s", delay)
			s.delayFn(delay)
		}
	}
	return fmt.Errorf("commit %s to %s: %d attempts exhausted: %w", path, branch, s.attempts, lastErr)
}

// CommitFiles commits files to branch in a single commit. Zero files is a
// no-op; one file takes the simpler single-file path, which is equally
// atomic. More than one file goes through blob/tree/commit construction so
// all files land in one commit.
//
// The new commit's parent is the branch tip read at the start of the
// sequence and the final ref update is non-forcing, so a concurrent writer
// moving the branch mid-sequence makes the update fail with ErrConflict
// rather than silently losing their commit. Unlike CommitFile, this path is
// not retried internally; the caller decides whether to rebuild.
func (s *Service) CommitFiles(ctx context.Context, files []File, message, branch string, opts ...CommitOption) error {
	switch len(files) {
	case 0:
		return nil
	case 1:
		return s.CommitFile(ctx, files[0].Path, files[0].Content, message, branch, opts...)
	}

	o := applyCommitOptions(opts)
	if o.ensureBranch {
		if err := s.EnsureBranch(ctx, branch); err != nil {
			return err
		}
	}

	tipSHA, found, err := s.client.GetBranchRef(ctx, branch)
	if err != nil {
		return fmt.Errorf("read tip of %s: %w", branch, err)
	}
	if !found {
		return fmt.Errorf("%s: %w", branch, ErrBranchNotFound)
	}
	tip, err := s.client.GetGitCommit(ctx, tipSHA)
	if err != nil {
		return fmt.Errorf("read base tree of %s: %w", branch, err)
	}

	entries := make([]githost.TreeEntry, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			blobSHA, err := s.client.CreateBlob(gctx, githost.EncodeContent(f.Content))
			if err != nil {
				return fmt.Errorf("create blob for %s: %w", f.Path, err)
			}
			entries[i] = githost.TreeEntry{Path: f.Path, BlobSHA: blobSHA}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	treeSHA, err := s.client.CreateTree(ctx, tip.TreeSHA, entries)
	if err != nil {
		return fmt.Errorf("create tree on %s: %w", branch, err)
	}
	commitSHA, err := s.client.CreateCommit(ctx, message, treeSHA, tipSHA)
	if err != nil {
		return fmt.Errorf("create commit on %s: %w", branch, err)
	}
	if err := s.client.UpdateRef(ctx, branch, commitSHA); err != nil {
		return fmt.Errorf("update %s to %s: %w", branch, commitSHA, err)
	}
	s.log.WithContext(ctx).WithFields(logging.Fields{
		logging.BranchFieldKey: branch,
		"files":                len(files),
		"commit_sha":           commitSHA,
	}).Info("committed files")
	return nil
}
