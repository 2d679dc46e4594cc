package broker

import (
	"context"
	"fmt"

	"github.com/hlhsinfo/hlhsinfo-backend/internal/portal"
	"github.com/hlhsinfo/hlhsinfo-backend/internal/token"
)

// Profile fetches the full profile page for the credential's session and
// returns its fields together with the student photo as a data URI.
func (b *Broker) Profile(ctx context.Context, sc *token.SessionClaims) (*portal.Profile, error) {
	resp, err := b.client.GetHTML(ctx, portal.PageProfile.URL(sc.Host), sc.Cookie)
	if err != nil {
		return nil, classifyTransport(err)
	}
	if !portal.SessionAlive(resp.Doc) {
		return nil, ErrSessionExpiredUpstream
	}

	imageID, err := portal.ProfileImageID(resp.Doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamBadStatus, err)
	}
	image, err := b.client.FetchProfileImage(ctx, sc.Host, sc.Cookie, imageID)
	if err != nil {
		return nil, classifyTransport(err)
	}

	return &portal.Profile{
		Data:       portal.ExtractProfileFields(resp.Doc),
		ProfileImg: image,
	}, nil
}

// AvailableScores lists the exams the portal will currently serve scores
// for.
func (b *Broker) AvailableScores(ctx context.Context, sc *token.SessionClaims) ([]portal.ScoreOption, error) {
	resp, err := b.client.GetHTML(ctx, portal.PageScoreList.URL(sc.Host), sc.Cookie)
	if err != nil {
		return nil, classifyTransport(err)
	}
	if !portal.SessionAlive(resp.Doc) {
		return nil, ErrSessionExpiredUpstream
	}

	return portal.ExtractScoreOptions(resp.Doc), nil
}

// ScoreQuery identifies one exam's score page.
type ScoreQuery struct {
	Year   string
	Term   string
	TestID string
}

// ScoreDetail fetches one exam's scores.
func (b *Broker) ScoreDetail(ctx context.Context, sc *token.SessionClaims, q ScoreQuery) (*portal.ScoreDetail, error) {
	path := portal.PageScore.Replace(map[string]string{
		"year":   q.Year,
		"term":   q.Term,
		"testid": q.TestID,
	})

	resp, err := b.client.GetHTML(ctx, sc.Host+path, sc.Cookie)
	if err != nil {
		return nil, classifyTransport(err)
	}
	if !portal.SessionAlive(resp.Doc) {
		return nil, ErrSessionExpiredUpstream
	}
	if !portal.ScoreReady(resp.Doc) {
		return nil, ErrScoreNotReady
	}

	return portal.ExtractScoreDetail(resp.Doc), nil
}

// Conduct fetches the student's conduct records.
func (b *Broker) Conduct(ctx context.Context, sc *token.SessionClaims) (*portal.ConductRecord, error) {
	resp, err := b.client.GetHTML(ctx, portal.PageRewardAndPunish.URL(sc.Host), sc.Cookie)
	if err != nil {
		return nil, classifyTransport(err)
	}
	if !portal.SessionAlive(resp.Doc) {
		return nil, ErrSessionExpiredUpstream
	}

	return portal.ExtractConduct(resp.Doc), nil
}

// Attendance fetches the student's attendance records.
func (b *Broker) Attendance(ctx context.Context, sc *token.SessionClaims) (*portal.Attendance, error) {
	resp, err := b.client.GetHTML(ctx, portal.PageLack.URL(sc.Host), sc.Cookie)
	if err != nil {
		return nil, classifyTransport(err)
	}
	if !portal.SessionAlive(resp.Doc) {
		return nil, ErrSessionExpiredUpstream
	}

	return portal.ExtractAttendance(resp.Doc), nil
}
