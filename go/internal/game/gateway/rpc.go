package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/mcdev12/pricegame/go/internal/game/room"
)

const (
	RoomServiceName = "pricegame.v1.RoomService"

	RoomServiceCreateRoomProcedure   = "/pricegame.v1.RoomService/CreateRoom"
	RoomServiceGetRoomStateProcedure = "/pricegame.v1.RoomService/GetRoomState"
)

// RoomService exposes room creation and state over Connect, using
// well-known message types.
type RoomService struct {
	rooms *room.Registry
}

func NewRoomService(rooms *room.Registry) *RoomService {
	return &RoomService{rooms: rooms}
}

func (s *RoomService) CreateRoom(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[wrapperspb.StringValue], error) {
	rm, err := s.rooms.Create()
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewResponse(wrapperspb.String(rm.Code)), nil
}

func (s *RoomService) GetRoomState(ctx context.Context, req *connect.Request[wrapperspb.StringValue]) (*connect.Response[structpb.Struct], error) {
	code := req.Msg.GetValue()
	if code == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("room code is required"))
	}
	state, ok := RoomState(s.rooms, code)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, room.ErrRoomNotFound)
	}

	msg, err := toStruct(state)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// NewRoomServiceHandler returns the mount path and handler for RoomService.
func NewRoomServiceHandler(svc *RoomService, opts ...connect.HandlerOption) (string, http.Handler) {
	createRoom := connect.NewUnaryHandler(RoomServiceCreateRoomProcedure, svc.CreateRoom, opts...)
	getRoomState := connect.NewUnaryHandler(RoomServiceGetRoomStateProcedure, svc.GetRoomState, opts...)

	return "/" + RoomServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case RoomServiceCreateRoomProcedure:
			createRoom.ServeHTTP(w, r)
		case RoomServiceGetRoomStateProcedure:
			getRoomState.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("failed to convert state: %w", err)
	}
	return out, nil
}
