// Package votes implements the vote ledger: cast and retract operations that
// keep the per-song counter consistent with the ledger rows and announce
// every accepted change on the setlist's realtime channel.
package votes

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"showvote/internal/models"
	"showvote/internal/realtime"
	"showvote/internal/repositories"
)

// ErrSongNotFound is returned when the target song does not exist
var ErrSongNotFound = errors.New("setlist song not found")

// Result reasons for rejected votes
const (
	ReasonAlreadyVoted = "already_voted"
	ReasonCapExceeded  = "vote_cap_exceeded"
	ReasonNoVote       = "no_vote_to_retract"
)

// Identity names the voter. Anonymous identities are session fingerprints
// and are subject to the per-show cap; authenticated ones are not.
type Identity struct {
	Value     string
	Anonymous bool
}

// Result reports the outcome of a cast or retract. Rejections that leave the
// ledger untouched (duplicate vote, cap, missing retraction) are not errors:
// Accepted is false and Reason says why, while NewCount still carries the
// song's current total.
type Result struct {
	Accepted bool   `json:"accepted"`
	NewCount int    `json:"newCount"`
	Reason   string `json:"reason,omitempty"`
}

// Publisher receives one event per accepted ledger change
type Publisher interface {
	Publish(setlistID string, event realtime.Event)
}

const publishStripes = 64

// Ledger coordinates vote writes and realtime fan-out
type Ledger struct {
	votes    repositories.VoteRepository
	setlists repositories.SetlistRepository
	pub      Publisher
	anonCap  int

	// One mutex per song stripe orders the store write and the publish as a
	// unit, so subscribers see counts for the same song in commit order
	stripes [publishStripes]sync.Mutex
}

// NewLedger creates a vote ledger. anonCap is the per-show quota for
// anonymous identities; zero disables the cap.
func NewLedger(votes repositories.VoteRepository, setlists repositories.SetlistRepository, pub Publisher, anonCap int) *Ledger {
	return &Ledger{
		votes:    votes,
		setlists: setlists,
		pub:      pub,
		anonCap:  anonCap,
	}
}

// Cast records one vote by identity for the song. Duplicate votes and
// cap-exceeded votes are rejected without touching the ledger.
func (l *Ledger) Cast(ctx context.Context, identity Identity, songID string) (*Result, error) {
	song, setlist, err := l.resolve(ctx, songID)
	if err != nil {
		return nil, err
	}

	stripe := l.stripe(songID)
	stripe.Lock()
	defer stripe.Unlock()

	vote := models.NewVote(identity.Value, identity.Anonymous, song.ID, setlist.ShowID)

	quota := 0
	if identity.Anonymous {
		quota = l.anonCap
	}

	newCount, err := l.votes.Record(ctx, vote, quota)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrAlreadyVoted):
			return l.rejected(ctx, song, ReasonAlreadyVoted)
		case errors.Is(err, repositories.ErrVoteCapExceeded):
			return l.rejected(ctx, song, ReasonCapExceeded)
		case errors.Is(err, repositories.ErrSongNotFound):
			return nil, ErrSongNotFound
		}
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}

	l.pub.Publish(song.SetlistID.Hex(), realtime.Event{SongID: song.ID.Hex(), NewCount: newCount})
	slog.Info("Vote recorded", "songID", song.ID.Hex(), "anonymous", identity.Anonymous, "newCount", newCount)

	return &Result{Accepted: true, NewCount: newCount}, nil
}

// Retract removes identity's vote for the song. Retracting a vote that was
// never cast is rejected without touching the ledger.
func (l *Ledger) Retract(ctx context.Context, identity Identity, songID string) (*Result, error) {
	song, _, err := l.resolve(ctx, songID)
	if err != nil {
		return nil, err
	}

	stripe := l.stripe(songID)
	stripe.Lock()
	defer stripe.Unlock()

	newCount, err := l.votes.Retract(ctx, identity.Value, song.ID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrVoteNotFound):
			return l.rejected(ctx, song, ReasonNoVote)
		case errors.Is(err, repositories.ErrSongNotFound):
			return nil, ErrSongNotFound
		}
		return nil, fmt.Errorf("failed to retract vote: %w", err)
	}

	l.pub.Publish(song.SetlistID.Hex(), realtime.Event{SongID: song.ID.Hex(), NewCount: newCount})
	slog.Info("Vote retracted", "songID", song.ID.Hex(), "newCount", newCount)

	return &Result{Accepted: true, NewCount: newCount}, nil
}

// HasVoted reports whether identity already holds a ledger row for the song
func (l *Ledger) HasVoted(ctx context.Context, identity Identity, songID string) (bool, error) {
	song, _, err := l.resolve(ctx, songID)
	if err != nil {
		return false, err
	}

	vote, err := l.votes.FindByIdentityAndSong(ctx, identity.Value, song.ID)
	if err != nil {
		return false, fmt.Errorf("failed to look up vote: %w", err)
	}
	return vote != nil, nil
}

func (l *Ledger) resolve(ctx context.Context, songID string) (*models.SetlistSong, *models.Setlist, error) {
	song, err := l.setlists.FindSongByID(ctx, songID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve song: %w", err)
	}
	if song == nil {
		return nil, nil, ErrSongNotFound
	}

	setlist, err := l.setlists.FindByID(ctx, song.SetlistID.Hex())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve setlist: %w", err)
	}
	if setlist == nil {
		return nil, nil, fmt.Errorf("song %s references missing setlist %s", songID, song.SetlistID.Hex())
	}

	return song, setlist, nil
}

// rejected builds a no-op result carrying the song's current count. The
// count is derived from the ledger rows, and a drifted denormalized counter
// is repaired on the spot via RecountSong.
func (l *Ledger) rejected(ctx context.Context, song *models.SetlistSong, reason string) (*Result, error) {
	count, err := l.votes.CountForSong(ctx, song.ID)
	if err != nil {
		// Fall back to the counter we resolved before the write attempt
		return &Result{Accepted: false, NewCount: song.VoteCount, Reason: reason}, nil
	}

	if int(count) != song.VoteCount {
		if _, err := l.setlists.RecountSong(ctx, song.ID); err != nil {
			slog.Warn("Failed to repair drifted vote count", "songID", song.ID.Hex(), "error", err)
		}
	}

	return &Result{Accepted: false, NewCount: int(count), Reason: reason}, nil
}

func (l *Ledger) stripe(songID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(songID))
	return &l.stripes[h.Sum32()%publishStripes]
}
