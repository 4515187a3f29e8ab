package services

import (
	"context"
	"errors"

	"github.com/otslabs/tsgallery/internal/gallery"
	"github.com/otslabs/tsgallery/internal/store"
)

// GallerySession is the session snapshot returned by every gallery
// endpoint: the session id plus the current view.
type GallerySession struct {
	ID string `json:"id"`
	gallery.Snapshot
}

// GalleryService drives the web tab's sessions. Each session wraps one view
// state machine; operations on a session run one at a time, mirroring the
// tab's blocking request/response flow.
type GalleryService struct {
	records  *RecordService
	sessions *gallery.Registry
}

// NewGalleryService constructs a gallery service.
func NewGalleryService(records *RecordService, sessions *gallery.Registry) (*GalleryService, error) {
	if records == nil {
		return nil, errors.New("gallery service: record service is required")
	}
	if sessions == nil {
		return nil, errors.New("gallery service: session registry is required")
	}
	return &GalleryService{records: records, sessions: sessions}, nil
}

// Open starts a fresh session showing an empty list.
func (s *GalleryService) Open() *GallerySession {
	session := s.sessions.Open()
	return s.snapshot(session)
}

// Snapshot returns the current state of a session.
func (s *GalleryService) Snapshot(sessionID string) (*GallerySession, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(session), nil
}

// Search runs a search and installs the result set as the session's list.
// On failure the view keeps its previous results so the tab can show the
// error inline.
func (s *GalleryService) Search(ctx context.Context, sessionID string, filter store.Filter, page store.Page) (*GallerySession, error) {
	ctx = ensureContext(ctx)

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	var state *GallerySession
	var searchErr error
	session.Do(func(v *gallery.View) {
		result, err := s.records.Search(ctx, filter, page)
		if err != nil {
			searchErr = err
			return
		}
		v.SetResults(*result, filter)
		state = &GallerySession{ID: session.ID, Snapshot: v.Snapshot()}
	})
	if searchErr != nil {
		return nil, searchErr
	}
	return state, nil
}

// Select opens the detail pane over one record of the current page.
func (s *GalleryService) Select(sessionID string, index int) (*GallerySession, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	var state *GallerySession
	var selectErr error
	session.Do(func(v *gallery.View) {
		if _, err := v.Select(index); err != nil {
			selectErr = err
			return
		}
		state = &GallerySession{ID: session.ID, Snapshot: v.Snapshot()}
	})
	if selectErr != nil {
		return nil, selectErr
	}
	return state, nil
}

// CloseDetail dismisses the detail pane, keeping the result set.
func (s *GalleryService) CloseDetail(sessionID string) (*GallerySession, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	var state *GallerySession
	session.Do(func(v *gallery.View) {
		v.Close()
		state = &GallerySession{ID: session.ID, Snapshot: v.Snapshot()}
	})
	return state, nil
}

// EndSession drops the session entirely, for tab unload.
func (s *GalleryService) EndSession(sessionID string) {
	s.sessions.Close(sessionID)
}

func (s *GalleryService) snapshot(session *gallery.Session) *GallerySession {
	var state *GallerySession
	session.Do(func(v *gallery.View) {
		state = &GallerySession{ID: session.ID, Snapshot: v.Snapshot()}
	})
	return state
}
