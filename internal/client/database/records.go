package database

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/atinyakov/GophChat/internal/models"
)

func sessionKey(server, userID string) string {
	return server + " " + userID
}

// SaveSession upserts s. When s is active every other active session is
// deactivated in the same transaction.
func (d *DB) SaveSession(s models.Session) error {
	if s.Server == "" || s.UserID == "" {
		return errors.New("session requires server and user id")
	}
	key := sessionKey(s.Server, s.UserID)

	return d.Write("save session", func(tx *Tx) error {
		if s.Active {
			if err := deactivateExcept(tx, key); err != nil {
				return err
			}
		}
		s.UpdatedAt = time.Now().UTC()
		return tx.Upsert(key, &s, true)
	})
}

// ActivateServer makes the most recently updated session of server the only
// active one. When server has no session every session ends up inactive.
func (d *DB) ActivateServer(server string) error {
	return d.Write("activate server", func(tx *Tx) error {
		var own []models.Session
		if err := tx.Query(&own, badgerhold.Where("Server").Eq(server)); err != nil {
			return err
		}
		keep := ""
		if len(own) > 0 {
			sortByRecency(own)
			keep = sessionKey(own[0].Server, own[0].UserID)
		}
		if err := deactivateExcept(tx, keep); err != nil {
			return err
		}
		if keep == "" {
			return nil
		}
		s := own[0]
		if s.Active {
			return nil
		}
		s.Active = true
		return tx.Upsert(keep, &s, true)
	})
}

func deactivateExcept(tx *Tx, keep string) error {
	var active []models.Session
	if err := tx.Query(&active, badgerhold.Where("Active").Eq(true)); err != nil {
		return err
	}
	for i := range active {
		a := active[i]
		key := sessionKey(a.Server, a.UserID)
		if key == keep {
			continue
		}
		a.Active = false
		if err := tx.Upsert(key, &a, true); err != nil {
			return err
		}
	}
	return nil
}

// ActiveSession returns the active session or ErrNotFound.
func (d *DB) ActiveSession() (models.Session, error) {
	var active []models.Session
	if err := d.Query(&active, badgerhold.Where("Active").Eq(true)); err != nil {
		return models.Session{}, err
	}
	if len(active) == 0 {
		return models.Session{}, ErrNotFound
	}
	if len(active) > 1 {
		d.log.Warn("more than one active session found")
		sortByRecency(active)
	}
	return active[0], nil
}

// Sessions lists the sessions stored for server, newest first.
func (d *DB) Sessions(server string) ([]models.Session, error) {
	var res []models.Session
	if err := d.Query(&res, badgerhold.Where("Server").Eq(server)); err != nil {
		return nil, err
	}
	sortByRecency(res)
	return res, nil
}

func sortByRecency(s []models.Session) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].UpdatedAt.After(s[j].UpdatedAt) })
}

// SaveServer creates or replaces a server identity.
func (d *DB) SaveServer(srv models.ServerIdentity) error {
	if srv.URL == "" {
		return errors.New("server identity requires a url")
	}
	return d.Write("save server", func(tx *Tx) error {
		return tx.Upsert(srv.URL, &srv, true)
	})
}

// AddServer stores a new server identity and fails with ErrConflict when the
// URL is already known.
func (d *DB) AddServer(srv models.ServerIdentity) error {
	if srv.URL == "" {
		return errors.New("server identity requires a url")
	}
	return d.Write("add server", func(tx *Tx) error {
		return tx.Upsert(srv.URL, &srv, false)
	})
}

// Server loads the identity stored for url.
func (d *DB) Server(url string) (models.ServerIdentity, error) {
	var srv models.ServerIdentity
	err := d.store.Get(url, &srv)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return srv, fmt.Errorf("server %s: %w", url, ErrNotFound)
	}
	return srv, err
}

// Servers lists all known server identities.
func (d *DB) Servers() ([]models.ServerIdentity, error) {
	var res []models.ServerIdentity
	if err := d.Query(&res, nil); err != nil {
		return nil, err
	}
	sort.Slice(res, func(i, j int) bool { return res[i].URL < res[j].URL })
	return res, nil
}

// DeleteServer removes the identity of url together with its sessions.
func (d *DB) DeleteServer(url string) error {
	return d.Write("delete server", func(tx *Tx) error {
		if err := tx.Delete(url, &models.ServerIdentity{}); err != nil {
			return err
		}
		return tx.DeleteMatching(&models.Session{}, badgerhold.Where("Server").Eq(url))
	})
}
