// Package writesvc implements the write service: object/version/tag
// creation and update, with a single clock reading per call and automatic
// maintenance of the controlled (trac_-prefixed) attributes (spec.md §4.5).
package writesvc

import (
	"context"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/dal"
	"github.com/tracmeta/metacore/internal/svcerr"
	"github.com/tracmeta/metacore/internal/tagupdate"
	"github.com/tracmeta/metacore/internal/wire"
)

const op = "writesvc"

// Validator checks an application-defined invariant on a version
// transition before it is persisted (spec.md §4.5 "version validation
// hook"); a validation failure is reported as VersionValidation, distinct
// from the DAL's own VersionConflict (optimistic-concurrency mismatch).
type Validator interface {
	ValidateVersionIncrement(prior, next catalog.ObjectDefinition) error
}

// User identifies the caller credited for create_user/update_user
// controlled attributes.
type User struct {
	ID   wire.UUID
	Name string
}

type userContextKey struct{}

// ContextWithUser attaches the acting user to ctx for the duration of a
// write call.
func ContextWithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// UserFromContext retrieves the user attached by ContextWithUser.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userContextKey{}).(User)
	return u, ok
}

// Service is the write service. DB is the relational DAL; Validator is
// optional (nil skips the application-defined version check); Clock is
// overridable for deterministic tests and otherwise defaults to wire.Now.
type Service struct {
	DB        *dal.DB
	Validator Validator
	Clock     func() wire.Timestamp
}

func (s *Service) now() wire.Timestamp {
	if s.Clock != nil {
		return s.Clock()
	}
	return wire.Now()
}

// CreateObjectRequest describes one brand-new object. ID is optional; a
// zero UUID is replaced with a freshly generated one.
type CreateObjectRequest struct {
	ID         wire.UUID
	Type       catalog.ObjectType
	Definition catalog.ObjectDefinition
	Attrs      map[string]wire.Value
}

// CreateObject creates a single new object with its initial version and
// tag.
func (s *Service) CreateObject(ctx context.Context, tenant string, req CreateObjectRequest) (catalog.TagHeader, error) {
	headers, err := s.CreateObjects(ctx, tenant, []CreateObjectRequest{req})
	if err != nil {
		return catalog.TagHeader{}, err
	}
	return headers[0], nil
}

// CreateObjects creates a batch of new objects in one transaction, all
// stamped with the same clock reading (spec.md §4.5 "one clock reading per
// write call").
func (s *Service) CreateObjects(ctx context.Context, tenant string, reqs []CreateObjectRequest) ([]catalog.TagHeader, error) {
	now := s.now()
	user, _ := UserFromContext(ctx)

	dalReqs := make([]dal.NewObjectRequest, len(reqs))
	for i, r := range reqs {
		id := r.ID
		if id == (wire.UUID{}) {
			id = wire.NewUUID()
		}
		dalReqs[i] = dal.NewObjectRequest{
			ID: id, Type: r.Type, Definition: r.Definition,
			ObjectTime: now, TagTime: now,
			Attrs: stampControlled(r.Attrs, now, user, true),
		}
	}
	return s.DB.SaveNewObjects(ctx, tenant, dalReqs)
}

// PreallocateID reserves count object identities of objType, without
// creating any catalogue rows yet.
func (s *Service) PreallocateID(ctx context.Context, tenant string, objType catalog.ObjectType, count int) ([]wire.UUID, error) {
	return s.DB.PreallocateObjectIDs(ctx, tenant, objType, count)
}

// CreatePreallocatedObjectRequest materializes a previously preallocated ID.
type CreatePreallocatedObjectRequest struct {
	ID         wire.UUID
	Type       catalog.ObjectType
	Definition catalog.ObjectDefinition
	Attrs      map[string]wire.Value
}

// CreatePreallocatedObjects materializes a batch of previously preallocated
// IDs into real objects.
func (s *Service) CreatePreallocatedObjects(ctx context.Context, tenant string, reqs []CreatePreallocatedObjectRequest) ([]catalog.TagHeader, error) {
	now := s.now()
	user, _ := UserFromContext(ctx)

	dalReqs := make([]dal.NewObjectRequest, len(reqs))
	for i, r := range reqs {
		dalReqs[i] = dal.NewObjectRequest{
			ID: r.ID, Type: r.Type, Definition: r.Definition,
			ObjectTime: now, TagTime: now,
			Attrs: stampControlled(r.Attrs, now, user, true),
		}
	}
	return s.DB.SavePreallocatedObjects(ctx, tenant, dalReqs)
}

// UpdateObjectRequest appends a new version to an existing object.
type UpdateObjectRequest struct {
	Type         catalog.ObjectType
	ID           wire.UUID
	PriorVersion int64
	Definition   catalog.ObjectDefinition
	Attrs        map[string]wire.Value
}

// UpdateObjects appends a new version (and fresh initial tag) to each named
// object, after running Validator (if set) against each (prior, next)
// definition pair.
func (s *Service) UpdateObjects(ctx context.Context, tenant string, reqs []UpdateObjectRequest) ([]catalog.TagHeader, error) {
	now := s.now()
	user, _ := UserFromContext(ctx)

	if s.Validator != nil {
		selectors := make([]catalog.TagSelector, len(reqs))
		for i, r := range reqs {
			selectors[i] = catalog.TagSelector{
				Type: r.Type, ObjectID: r.ID,
				Version: catalog.ExplicitCoord(r.PriorVersion), Tag: catalog.LatestCoord(),
			}
		}
		priorTags, err := s.DB.LoadTags(ctx, tenant, selectors)
		if err != nil {
			return nil, err
		}
		for i, r := range reqs {
			if err := s.Validator.ValidateVersionIncrement(priorTags[i].Definition, r.Definition); err != nil {
				return nil, svcerr.Wrap(svcerr.KindVersionValidation, op+".UpdateObjects", "version transition rejected", err)
			}
		}
	}

	dalReqs := make([]dal.NewVersionRequest, len(reqs))
	for i, r := range reqs {
		dalReqs[i] = dal.NewVersionRequest{
			Type: r.Type, ID: r.ID, PriorVersion: r.PriorVersion,
			Definition: r.Definition, ObjectTime: now, TagTime: now,
			Attrs: stampControlled(r.Attrs, now, user, true),
		}
	}
	return s.DB.SaveNewVersions(ctx, tenant, dalReqs)
}

// UpdateTagRequest applies a sequence of attribute updates to tag
// PriorTagVersion of a version (the latest version, or the one named by
// Version), producing a new tag.
type UpdateTagRequest struct {
	Type            catalog.ObjectType
	ID              wire.UUID
	Version         *int64 // nil selects the object's current latest version
	PriorTagVersion int64
	Updates         []catalog.TagUpdate
}

// UpdateTags applies Updates against each named tag's current attribute set
// and persists the result as a new tag (spec.md §4.5 "UPDATE_TAG"). The
// update function (internal/tagupdate) runs purely in memory; only the
// result is written.
func (s *Service) UpdateTags(ctx context.Context, tenant string, reqs []UpdateTagRequest) ([]catalog.TagHeader, error) {
	now := s.now()
	user, _ := UserFromContext(ctx)

	selectors := make([]catalog.TagSelector, len(reqs))
	for i, r := range reqs {
		version := catalog.LatestCoord()
		if r.Version != nil {
			version = catalog.ExplicitCoord(*r.Version)
		}
		selectors[i] = catalog.TagSelector{
			Type: r.Type, ObjectID: r.ID,
			Version: version, Tag: catalog.ExplicitCoord(r.PriorTagVersion),
		}
	}
	current, err := s.DB.LoadTags(ctx, tenant, selectors)
	if err != nil {
		return nil, err
	}

	dalReqs := make([]dal.NewTagRequest, len(reqs))
	for i, r := range reqs {
		updated, err := tagupdate.Apply(current[i], r.Updates)
		if err != nil {
			return nil, err
		}
		dalReqs[i] = dal.NewTagRequest{
			Type: r.Type, ID: r.ID, Version: r.Version,
			PriorTagVersion: r.PriorTagVersion, TagTime: now,
			Attrs: stampControlled(updated.Attrs, now, user, false),
		}
	}
	return s.DB.SaveNewTags(ctx, tenant, dalReqs)
}

// stampControlled returns a copy of attrs with the trac_update_* attributes
// set to now/user, plus trac_create_* when isCreate (spec.md §4.5: create
// attributes are set once and never touched again).
func stampControlled(attrs map[string]wire.Value, now wire.Timestamp, user User, isCreate bool) map[string]wire.Value {
	out := make(map[string]wire.Value, len(attrs)+3)
	for k, v := range attrs {
		out[k] = v
	}
	if isCreate {
		out[catalog.AttrCreateTime] = wire.NewDateTime(now)
		out[catalog.AttrCreateUserID] = wire.NewString(user.ID.String())
		out[catalog.AttrCreateUserName] = wire.NewString(user.Name)
	}
	out[catalog.AttrUpdateTime] = wire.NewDateTime(now)
	out[catalog.AttrUpdateUserID] = wire.NewString(user.ID.String())
	out[catalog.AttrUpdateUserName] = wire.NewString(user.Name)
	return out
}
