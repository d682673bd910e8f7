package rpc

import (
	"context"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/wire"
	"github.com/tracmeta/metacore/internal/writesvc"
)

func (s *Server) CreateObject(ctx context.Context, req *CreateObjectRequest) (*CreateObjectResponse, error) {
	attrs, err := msgToAttrs(req.Attrs)
	if err != nil {
		return nil, toStatus(err)
	}
	var id wire.UUID
	if req.ObjectID != "" {
		id, err = wire.ParseUUID(req.ObjectID)
		if err != nil {
			return nil, toStatus(err)
		}
	}
	header, err := s.Write.CreateObject(ctx, req.Tenant, writesvc.CreateObjectRequest{
		ID:         id,
		Type:       objectTypeOrUnspecified(req.Type),
		Definition: msgToDefinition(req.Definition),
		Attrs:      attrs,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &CreateObjectResponse{Header: headerToMsg(header)}, nil
}

func (s *Server) PreallocateIDs(ctx context.Context, req *PreallocateIDsRequest) (*PreallocateIDsResponse, error) {
	ids, err := s.Write.PreallocateID(ctx, req.Tenant, objectTypeOrUnspecified(req.Type), req.Count)
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return &PreallocateIDsResponse{ObjectIDs: out}, nil
}

func (s *Server) UpdateObject(ctx context.Context, req *UpdateObjectRequest) (*UpdateObjectResponse, error) {
	id, err := wire.ParseUUID(req.ObjectID)
	if err != nil {
		return nil, toStatus(err)
	}
	attrs, err := msgToAttrs(req.Attrs)
	if err != nil {
		return nil, toStatus(err)
	}
	headers, err := s.Write.UpdateObjects(ctx, req.Tenant, []writesvc.UpdateObjectRequest{{
		Type:         objectTypeOrUnspecified(req.Type),
		ID:           id,
		PriorVersion: req.PriorVersion,
		Definition:   msgToDefinition(req.Definition),
		Attrs:        attrs,
	}})
	if err != nil {
		return nil, toStatus(err)
	}
	return &UpdateObjectResponse{Header: headerToMsg(headers[0])}, nil
}

func (s *Server) UpdateTag(ctx context.Context, req *UpdateTagRequest) (*UpdateTagResponse, error) {
	id, err := wire.ParseUUID(req.ObjectID)
	if err != nil {
		return nil, toStatus(err)
	}
	updates := make([]catalog.TagUpdate, len(req.Updates))
	for i, u := range req.Updates {
		update, err := msgToTagUpdate(u)
		if err != nil {
			return nil, toStatus(err)
		}
		updates[i] = update
	}
	headers, err := s.Write.UpdateTags(ctx, req.Tenant, []writesvc.UpdateTagRequest{{
		Type:            objectTypeOrUnspecified(req.Type),
		ID:              id,
		Version:         req.Version,
		PriorTagVersion: req.PriorTagVersion,
		Updates:         updates,
	}})
	if err != nil {
		return nil, toStatus(err)
	}
	return &UpdateTagResponse{Header: headerToMsg(headers[0])}, nil
}

func (s *Server) ReadObject(ctx context.Context, req *ReadObjectRequest) (*ReadObjectResponse, error) {
	sel, err := msgToSelector(req.Selector)
	if err != nil {
		return nil, toStatus(err)
	}
	tag, err := s.Read.ReadObject(ctx, req.Tenant, sel)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ReadObjectResponse{Tag: tagToMsg(tag)}, nil
}

func (s *Server) ReadBatch(ctx context.Context, req *ReadBatchRequest) (*ReadBatchResponse, error) {
	selectors := make([]catalog.TagSelector, len(req.Selectors))
	for i, m := range req.Selectors {
		sel, err := msgToSelector(m)
		if err != nil {
			return nil, toStatus(err)
		}
		selectors[i] = sel
	}
	tags, err := s.Read.ReadBatch(ctx, req.Tenant, selectors)
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]TagMsg, len(tags))
	for i, t := range tags {
		out[i] = tagToMsg(t)
	}
	return &ReadBatchResponse{Tags: out}, nil
}

func (s *Server) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	params, err := msgToSearchParameters(req.Parameters)
	if err != nil {
		return nil, toStatus(err)
	}
	results, err := s.Search.Execute(ctx, req.Tenant, params)
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]TagMsg, len(results))
	for i, r := range results {
		out[i] = tagToMsg(r.Tag)
	}
	return &SearchResponse{Results: out}, nil
}
