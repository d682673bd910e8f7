package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/tracmeta/metacore/internal/readsvc"
	"github.com/tracmeta/metacore/internal/search"
	"github.com/tracmeta/metacore/internal/writesvc"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// CatalogServer is the gRPC-facing contract mirrored by catalog.proto: one
// unary method per spec.md §6 operation.
type CatalogServer interface {
	CreateObject(context.Context, *CreateObjectRequest) (*CreateObjectResponse, error)
	PreallocateIDs(context.Context, *PreallocateIDsRequest) (*PreallocateIDsResponse, error)
	UpdateObject(context.Context, *UpdateObjectRequest) (*UpdateObjectResponse, error)
	UpdateTag(context.Context, *UpdateTagRequest) (*UpdateTagResponse, error)
	ReadObject(context.Context, *ReadObjectRequest) (*ReadObjectResponse, error)
	ReadBatch(context.Context, *ReadBatchRequest) (*ReadBatchResponse, error)
	Search(context.Context, *SearchRequest) (*SearchResponse, error)
}

// RegisterCatalogServer registers srv on s under the catalog.Catalog service
// name, the way tinySQL's registerTinySQLServer hand-builds a
// grpc.ServiceDesc in place of protoc-gen-go-grpc's generated
// RegisterXxxServer function.
func RegisterCatalogServer(s *grpc.Server, srv CatalogServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: "catalog.Catalog",
		HandlerType: (*CatalogServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "CreateObject", Handler: createObjectHandler},
			{MethodName: "PreallocateIDs", Handler: preallocateIDsHandler},
			{MethodName: "UpdateObject", Handler: updateObjectHandler},
			{MethodName: "UpdateTag", Handler: updateTagHandler},
			{MethodName: "ReadObject", Handler: readObjectHandler},
			{MethodName: "ReadBatch", Handler: readBatchHandler},
			{MethodName: "Search", Handler: searchHandler},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "catalog.proto",
	}, srv)
}

func createObjectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateObjectRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).CreateObject(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/catalog.Catalog/CreateObject"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).CreateObject(ctx, req.(*CreateObjectRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func preallocateIDsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PreallocateIDsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).PreallocateIDs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/catalog.Catalog/PreallocateIDs"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).PreallocateIDs(ctx, req.(*PreallocateIDsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func updateObjectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(UpdateObjectRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).UpdateObject(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/catalog.Catalog/UpdateObject"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).UpdateObject(ctx, req.(*UpdateObjectRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func updateTagHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(UpdateTagRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).UpdateTag(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/catalog.Catalog/UpdateTag"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).UpdateTag(ctx, req.(*UpdateTagRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func readObjectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ReadObjectRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).ReadObject(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/catalog.Catalog/ReadObject"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).ReadObject(ctx, req.(*ReadObjectRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func readBatchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ReadBatchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).ReadBatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/catalog.Catalog/ReadBatch"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).ReadBatch(ctx, req.(*ReadBatchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func searchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SearchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).Search(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/catalog.Catalog/Search"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).Search(ctx, req.(*SearchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Server implements CatalogServer on top of the write/read/search services,
// translating request/response wire messages and svcerr.Error kinds at the
// transport boundary.
type Server struct {
	Write  *writesvc.Service
	Read   *readsvc.Service
	Search *search.Service
}
