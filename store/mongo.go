package store

import (
	"context"
	"time"

	"podium/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	collQueue         = "matchmaking_queue"
	collDebates       = "debates"
	collUsers         = "users"
	collGuestSessions = "guest_sessions"
	collStrikes       = "strikes"
	collNotifications = "notifications"
	collVotes         = "votes"
	collTopics        = "topics"
	collChallenges    = "challenges"
)

// Mongo is the production Store backed by MongoDB. Guarded transitions are
// single UpdateOne calls with compound filters; MatchedCount==0 reports a
// guard miss.
type Mongo struct {
	db *mongo.Database
}

// NewMongo wraps an existing database handle.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

func (m *Mongo) coll(name string) *mongo.Collection {
	return m.db.Collection(name)
}

func ownerFilter(prefix string, o models.Owner) bson.M {
	if o.UserID != "" {
		return bson.M{prefix + ".userId": o.UserID}
	}
	return bson.M{prefix + ".sessionId": o.SessionID}
}

// ---- Queue entries ----

func (m *Mongo) FindWaitingEntry(ctx context.Context, owner models.Owner) (*models.QueueEntry, error) {
	filter := ownerFilter("owner", owner)
	filter["status"] = models.QueueWaiting

	var entry models.QueueEntry
	err := m.coll(collQueue).FindOne(ctx, filter).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (m *Mongo) GetQueueEntry(ctx context.Context, id string) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	err := m.coll(collQueue).FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (m *Mongo) InsertQueueEntry(ctx context.Context, entry *models.QueueEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	_, err := m.coll(collQueue).InsertOne(ctx, entry)
	return err
}

func (m *Mongo) ExpireStaleEntries(ctx context.Context, now time.Time) (int64, error) {
	res, err := m.coll(collQueue).UpdateMany(ctx,
		bson.M{"status": models.QueueWaiting, "expiresAt": bson.M{"$lt": now}},
		bson.M{"$set": bson.M{"status": models.QueueExpired}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (m *Mongo) ListCandidates(ctx context.Context, q CandidateQuery) ([]models.QueueEntry, error) {
	filter := bson.M{
		"status":    models.QueueWaiting,
		"timeLimit": q.TimeLimit,
		"ranked":    q.Ranked,
		"category":  q.Category,
		"_id":       bson.M{"$ne": q.ExcludeID},
		"expiresAt": bson.M{"$gte": q.Now},
	}
	if len(q.Stances) > 0 {
		filter["stance"] = bson.M{"$in": q.Stances}
	}
	if q.TopicID != "" && q.Category != models.CategoryQuick {
		filter["$or"] = []bson.M{
			{"topicId": q.TopicID},
			{"topicId": bson.M{"$in": []interface{}{nil, ""}}},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := m.coll(collQueue).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.QueueEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (m *Mongo) ClaimQueueEntry(ctx context.Context, id, matchedWith, debateID string) (bool, error) {
	res, err := m.coll(collQueue).UpdateOne(ctx,
		bson.M{"_id": id, "status": models.QueueWaiting},
		bson.M{"$set": bson.M{
			"status":      models.QueueMatched,
			"matchedWith": matchedWith,
			"debateId":    debateID,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (m *Mongo) ReleaseQueueEntry(ctx context.Context, id string) (bool, error) {
	res, err := m.coll(collQueue).UpdateOne(ctx,
		bson.M{"_id": id, "status": models.QueueMatched},
		bson.M{
			"$set":   bson.M{"status": models.QueueWaiting},
			"$unset": bson.M{"matchedWith": "", "debateId": ""},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (m *Mongo) ExpireQueueEntry(ctx context.Context, id string) (bool, error) {
	res, err := m.coll(collQueue).UpdateOne(ctx,
		bson.M{"_id": id, "status": models.QueueWaiting},
		bson.M{"$set": bson.M{"status": models.QueueExpired}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// ---- Debate sessions ----

func (m *Mongo) InsertDebate(ctx context.Context, d *models.DebateSession) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	_, err := m.coll(collDebates).InsertOne(ctx, d)
	return err
}

func (m *Mongo) GetDebate(ctx context.Context, id string) (*models.DebateSession, error) {
	var d models.DebateSession
	err := m.coll(collDebates).FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (m *Mongo) SetDebateRoom(ctx context.Context, id, roomName, roomURL string) error {
	_, err := m.coll(collDebates).UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"roomName": roomName, "roomUrl": roomURL}})
	return err
}

func (m *Mongo) TransitionDebate(ctx context.Context, id, expectStatus, expectPhase string, next DebateTransition) (bool, error) {
	filter := bson.M{"_id": id, "status": expectStatus}
	if expectPhase != "" {
		filter["phase"] = expectPhase
	}

	set := bson.M{}
	if next.Status != "" {
		set["status"] = next.Status
	}
	if next.Phase != "" {
		set["phase"] = next.Phase
	}
	if next.Winner != "" {
		set["winner"] = next.Winner
	}
	if next.WinnerSource != "" {
		set["winnerSource"] = next.WinnerSource
	}
	if next.StartedAt != nil {
		set["startedAt"] = next.StartedAt
	}
	if next.CompletedAt != nil {
		set["completedAt"] = next.CompletedAt
	}

	res, err := m.coll(collDebates).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (m *Mongo) SwapDebateSides(ctx context.Context, id string) (bool, error) {
	var d models.DebateSession
	err := m.coll(collDebates).FindOne(ctx,
		bson.M{"_id": id, "phase": models.PhasePrematch}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// Re-check prematch in the update filter so a concurrent start loses.
	res, err := m.coll(collDebates).UpdateOne(ctx,
		bson.M{"_id": id, "phase": models.PhasePrematch},
		bson.M{"$set": bson.M{"pro": d.Con, "con": d.Pro}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (m *Mongo) SetDebateStatus(ctx context.Context, id, status string) error {
	_, err := m.coll(collDebates).UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status}})
	return err
}

func (m *Mongo) SetRecordingID(ctx context.Context, id, recordingID string) error {
	_, err := m.coll(collDebates).UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"recordingId": recordingID}})
	return err
}

func (m *Mongo) SetAudioURL(ctx context.Context, id, audioURL string) error {
	_, err := m.coll(collDebates).UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"audioUrl": audioURL}})
	return err
}

func (m *Mongo) SetTranscript(ctx context.Context, id string, t *models.Transcript, status string) error {
	_, err := m.coll(collDebates).UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"transcript": t, "transcriptStatus": status}})
	return err
}

func (m *Mongo) SetTranscriptStatus(ctx context.Context, id, status string) error {
	_, err := m.coll(collDebates).UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"transcriptStatus": status}})
	return err
}

func (m *Mongo) SetScores(ctx context.Context, id string, proc *models.ProceduralAnalysis, qual *models.QualitativeAnalysis, proScore, conScore int) error {
	_, err := m.coll(collDebates).UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"procedural":      proc,
			"qualitative":     qual,
			"proQualityScore": proScore,
			"conQualityScore": conScore,
			"scoringStatus":   "completed",
		}})
	return err
}

func (m *Mongo) SetScoringStatus(ctx context.Context, id, status string) error {
	_, err := m.coll(collDebates).UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"scoringStatus": status}})
	return err
}

func (m *Mongo) SavePipelineState(ctx context.Context, id string, ps *models.PipelineState) error {
	_, err := m.coll(collDebates).UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"pipelineState": ps}})
	return err
}

func (m *Mongo) SetWinner(ctx context.Context, id, winner, source string) (bool, error) {
	res, err := m.coll(collDebates).UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusCompleted},
		bson.M{"$set": bson.M{"winner": winner, "winnerSource": source}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// ---- Users and guest sessions ----

func (m *Mongo) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := m.coll(collUsers).FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (m *Mongo) ApplyDebateQuality(ctx context.Context, id string, newAvg int) error {
	_, err := m.coll(collUsers).UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"qualityScoreAvg": newAvg},
		"$inc": bson.M{"totalDebates": 1},
	})
	return err
}

func (m *Mongo) IncrementUserRecord(ctx context.Context, id string, wins, losses, draws, totalDebates int) error {
	_, err := m.coll(collUsers).UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{
			"wins":         wins,
			"losses":       losses,
			"draws":        draws,
			"totalDebates": totalDebates,
		},
	})
	return err
}

func (m *Mongo) GetGuestSession(ctx context.Context, id string) (*models.GuestSession, error) {
	var s models.GuestSession
	err := m.coll(collGuestSessions).FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *Mongo) IncrementGuestDebates(ctx context.Context, id string) error {
	_, err := m.coll(collGuestSessions).UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$inc": bson.M{"debateCount": 1}})
	return err
}

// ---- Pipeline outputs and community flows ----

func (m *Mongo) InsertStrike(ctx context.Context, s *models.Strike) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := m.coll(collStrikes).InsertOne(ctx, s)
	return err
}

func (m *Mongo) InsertNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	_, err := m.coll(collNotifications).InsertOne(ctx, n)
	return err
}

func (m *Mongo) UpsertVote(ctx context.Context, v *models.Vote) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	opts := options.Update().SetUpsert(true)
	_, err := m.coll(collVotes).UpdateOne(ctx,
		bson.M{"debateId": v.DebateID, "voterId": v.VoterID},
		bson.M{
			"$set": bson.M{
				"winnerChoice":    v.WinnerChoice,
				"betterArguments": v.BetterArguments,
				"moreRespectful":  v.MoreRespectful,
				"changedMind":     v.ChangedMind,
			},
			"$setOnInsert": bson.M{"_id": v.ID, "createdAt": v.CreatedAt},
		}, opts)
	return err
}

func (m *Mongo) TallyVotes(ctx context.Context, debateID string) (models.VoteTally, error) {
	var tally models.VoteTally
	cursor, err := m.coll(collVotes).Find(ctx, bson.M{"debateId": debateID})
	if err != nil {
		return tally, err
	}
	defer cursor.Close(ctx)

	var votes []models.Vote
	if err := cursor.All(ctx, &votes); err != nil {
		return tally, err
	}
	for _, v := range votes {
		switch v.WinnerChoice {
		case models.SidePro:
			tally.Pro++
		case models.SideCon:
			tally.Con++
		case models.WinnerDraw:
			tally.Draw++
		}
	}
	return tally, nil
}

// ---- Topics ----

func (m *Mongo) GetTopic(ctx context.Context, id string) (*models.Topic, error) {
	var t models.Topic
	err := m.coll(collTopics).FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (m *Mongo) RandomOfficialTopic(ctx context.Context, category string) (*models.Topic, error) {
	match := bson.M{"isOfficial": true}
	if category != "" && category != models.CategoryQuick {
		match["category"] = category
	}

	pipeline := []bson.M{
		{"$match": match},
		{"$sample": bson.M{"size": 1}},
	}
	cursor, err := m.coll(collTopics).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var topics []models.Topic
	if err := cursor.All(ctx, &topics); err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return nil, ErrNotFound
	}
	return &topics[0], nil
}

func (m *Mongo) IncrementTopicDebates(ctx context.Context, id string) error {
	_, err := m.coll(collTopics).UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$inc": bson.M{"debateCount": 1}})
	return err
}

// ---- Challenges ----

func (m *Mongo) FindPendingChallenge(ctx context.Context, challengerID, targetID string) (*models.Challenge, error) {
	var c models.Challenge
	err := m.coll(collChallenges).FindOne(ctx, bson.M{
		"challengerId": challengerID,
		"targetId":     targetID,
		"status":       models.ChallengePending,
	}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *Mongo) InsertChallenge(ctx context.Context, c *models.Challenge) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := m.coll(collChallenges).InsertOne(ctx, c)
	return err
}

func (m *Mongo) ResolveChallenge(ctx context.Context, id, status string) (bool, error) {
	res, err := m.coll(collChallenges).UpdateOne(ctx,
		bson.M{"_id": id, "status": models.ChallengePending},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (m *Mongo) GetChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	var c models.Challenge
	err := m.coll(collChallenges).FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
