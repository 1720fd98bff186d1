package memory

import (
	"context"
	"time"

	"github.com/riskibarqy/forge/internal/domain/user"
)

type UserRepository struct {
	binding
}

func (r *UserRepository) GetByID(_ context.Context, id string) (user.User, bool, error) {
	var (
		out   user.User
		found bool
	)
	_ = r.with(func(st *state) error {
		out, found = st.users[id]
		return nil
	})
	return out, found, nil
}

func (r *UserRepository) GetByExternalID(_ context.Context, externalID string) (user.User, bool, error) {
	var (
		out   user.User
		found bool
	)
	_ = r.with(func(st *state) error {
		id, ok := st.usersByExternal[externalID]
		if !ok {
			return nil
		}
		out, found = st.users[id]
		return nil
	})
	return out, found, nil
}

func (r *UserRepository) Upsert(_ context.Context, newID string, upsert user.Upsert) (user.User, error) {
	var out user.User
	err := r.with(func(st *state) error {
		if id, ok := st.usersByExternal[upsert.ExternalID]; ok {
			item := st.users[id]
			if upsert.IsActive != nil && item.IsActive != *upsert.IsActive {
				item.IsActive = *upsert.IsActive
				item.UpdatedAt = upsert.At
			}
			st.users[id] = item
			out = item
			return nil
		}

		item := user.User{
			ID:         newID,
			ExternalID: upsert.ExternalID,
			JoinedAt:   upsert.At,
			Timezone:   upsert.Timezone,
			IsActive:   true,
			UpdatedAt:  upsert.At,
		}
		if item.Timezone == "" {
			item.Timezone = user.DefaultTimezone
		}
		if upsert.IsActive != nil {
			item.IsActive = *upsert.IsActive
		}
		st.users[newID] = item
		st.usersByExternal[item.ExternalID] = newID
		out = item
		return nil
	})
	return out, err
}

func (r *UserRepository) SetActive(_ context.Context, externalID string, active bool, at time.Time) (user.User, bool, error) {
	var (
		out   user.User
		found bool
	)
	_ = r.with(func(st *state) error {
		id, ok := st.usersByExternal[externalID]
		if !ok {
			return nil
		}
		item := st.users[id]
		item.IsActive = active
		item.UpdatedAt = at
		st.users[id] = item
		out, found = item, true
		return nil
	})
	return out, found, nil
}

func (r *UserRepository) CountActive(_ context.Context) (int, error) {
	count := 0
	_ = r.with(func(st *state) error {
		for _, item := range st.users {
			if item.IsActive {
				count++
			}
		}
		return nil
	})
	return count, nil
}
