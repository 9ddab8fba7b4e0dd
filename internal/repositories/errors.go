package repositories

import "errors"

// Sentinel errors surfaced by the repositories. The vote ledger maps the
// first two to successful no-op responses rather than failures.
var (
	// ErrAlreadyVoted: a vote row already exists for (identity, song)
	ErrAlreadyVoted = errors.New("identity has already voted for this song")

	// ErrVoteNotFound: retract was called but no vote row exists
	ErrVoteNotFound = errors.New("no vote found for this identity and song")

	// ErrSongNotFound: the referenced setlist song does not exist
	ErrSongNotFound = errors.New("setlist song not found")

	// ErrSetlistNotFound: the referenced setlist does not exist
	ErrSetlistNotFound = errors.New("setlist not found")
)
