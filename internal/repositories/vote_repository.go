package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"showvote/internal/models"
)

// VoteRepository is the vote ledger's storage contract. The ledger row and
// the denormalized counter on the setlist song must never be observably
// inconsistent, so Record and Retract perform both writes inside one mongo
// session transaction.
type VoteRepository interface {
	// Record inserts the ledger row and increments the song counter
	// atomically. Returns ErrAlreadyVoted when the (identity, song) row
	// exists, and ErrSongNotFound when the song id is dangling. If
	// anonCap > 0 the identity's per-show vote total is re-checked inside
	// the transaction and ErrVoteCapExceeded is returned at the cap.
	Record(ctx context.Context, vote *models.Vote, anonCap int) (newCount int, err error)

	// Retract deletes the ledger row and decrements the counter
	// atomically, clamped at zero. Returns ErrVoteNotFound when there is
	// nothing to retract.
	Retract(ctx context.Context, identity string, songID primitive.ObjectID) (newCount int, err error)

	FindByIdentityAndSong(ctx context.Context, identity string, songID primitive.ObjectID) (*models.Vote, error)
	CountForShow(ctx context.Context, identity string, showID primitive.ObjectID) (int64, error)
	CountForSong(ctx context.Context, songID primitive.ObjectID) (int64, error)
}

// ErrVoteCapExceeded is returned when an anonymous identity hits its
// per-show vote quota
var ErrVoteCapExceeded = fmt.Errorf("anonymous vote cap reached for this show")

// mongoVoteRepository implements VoteRepository using MongoDB transactions
type mongoVoteRepository struct {
	db    *models.Database
	votes *mongo.Collection
	songs *mongo.Collection
}

// NewMongoVoteRepository creates a new MongoDB-backed vote repository
func NewMongoVoteRepository(db *models.Database) VoteRepository {
	return &mongoVoteRepository{
		db:    db,
		votes: db.DB.Collection(models.CollectionVotes),
		songs: db.DB.Collection(models.CollectionSetlistSongs),
	}
}

func (r *mongoVoteRepository) Record(ctx context.Context, vote *models.Vote, anonCap int) (int, error) {
	session, err := r.db.Client.StartSession()
	if err != nil {
		return 0, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		// Cap check runs inside the transaction so two concurrent votes
		// cannot both sneak under the quota
		if vote.Anonymous && anonCap > 0 {
			total, err := r.votes.CountDocuments(sc, bson.M{
				"identity": vote.Identity,
				"show_id":  vote.ShowID,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to count identity votes: %w", err)
			}
			if total >= int64(anonCap) {
				return nil, ErrVoteCapExceeded
			}
		}

		if _, err := r.votes.InsertOne(sc, vote); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, ErrAlreadyVoted
			}
			return nil, fmt.Errorf("failed to insert vote: %w", err)
		}

		// Counter moves server-side; read-modify-write is not allowed here
		var song models.SetlistSong
		err := r.songs.FindOneAndUpdate(sc,
			bson.M{"_id": vote.SongID},
			bson.M{"$inc": bson.M{"vote_count": 1}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&song)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, ErrSongNotFound
			}
			return nil, fmt.Errorf("failed to increment vote count: %w", err)
		}

		return song.VoteCount, nil
	})
	if err != nil {
		return 0, err
	}

	return result.(int), nil
}

func (r *mongoVoteRepository) Retract(ctx context.Context, identity string, songID primitive.ObjectID) (int, error) {
	session, err := r.db.Client.StartSession()
	if err != nil {
		return 0, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		deleted, err := r.votes.DeleteOne(sc, bson.M{"identity": identity, "song_id": songID})
		if err != nil {
			return nil, fmt.Errorf("failed to delete vote: %w", err)
		}
		if deleted.DeletedCount == 0 {
			return nil, ErrVoteNotFound
		}

		// The vote_count > 0 guard clamps the counter at zero even if it
		// had drifted below the ledger
		var song models.SetlistSong
		err = r.songs.FindOneAndUpdate(sc,
			bson.M{"_id": songID, "vote_count": bson.M{"$gt": 0}},
			bson.M{"$inc": bson.M{"vote_count": -1}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&song)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				// Counter already at zero (or song gone); report the
				// current state rather than failing the retraction
				return r.currentCount(sc, songID)
			}
			return nil, fmt.Errorf("failed to decrement vote count: %w", err)
		}

		return song.VoteCount, nil
	})
	if err != nil {
		return 0, err
	}

	return result.(int), nil
}

func (r *mongoVoteRepository) currentCount(ctx context.Context, songID primitive.ObjectID) (int, error) {
	var song models.SetlistSong
	err := r.songs.FindOne(ctx, bson.M{"_id": songID}).Decode(&song)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, ErrSongNotFound
		}
		return 0, fmt.Errorf("failed to read vote count: %w", err)
	}
	return song.VoteCount, nil
}

func (r *mongoVoteRepository) FindByIdentityAndSong(ctx context.Context, identity string, songID primitive.ObjectID) (*models.Vote, error) {
	var vote models.Vote
	err := r.votes.FindOne(ctx, bson.M{"identity": identity, "song_id": songID}).Decode(&vote)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find vote: %w", err)
	}

	return &vote, nil
}

func (r *mongoVoteRepository) CountForShow(ctx context.Context, identity string, showID primitive.ObjectID) (int64, error) {
	count, err := r.votes.CountDocuments(ctx, bson.M{"identity": identity, "show_id": showID})
	if err != nil {
		return 0, fmt.Errorf("failed to count votes for show: %w", err)
	}
	return count, nil
}

func (r *mongoVoteRepository) CountForSong(ctx context.Context, songID primitive.ObjectID) (int64, error) {
	count, err := r.votes.CountDocuments(ctx, bson.M{"song_id": songID})
	if err != nil {
		return 0, fmt.Errorf("failed to count votes for song: %w", err)
	}
	return count, nil
}
