package http

import (
	"encoding/json"

	"github.com/pulsechat/pulsechat-server/internal/core"
	"github.com/pulsechat/pulsechat-server/internal/proto"
	"github.com/pulsechat/pulsechat-server/internal/store"
)

// inboundToCommand validates an inbound envelope and maps it to a core
// command. A malformed payload yields (nil, protoErr, nil): the caller
// reports it to the client without involving the hub. Payload shape is fully
// checked here; handler bodies never see an unvalidated field.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.ErrorPayload, error) {
	switch inbound.Type {
	case proto.InboundTypeAuth:
		var data proto.AuthData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.UserID == 0 && data.Token == "" {
			return nil, badRequest("userId or token is required"), nil
		}
		return &core.Command{
			Kind:   core.CommandAuth,
			UserID: data.UserID,
			Token:  data.Token,
		}, nil, nil

	case proto.InboundTypeChat:
		var data proto.ChatData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.ReceiverID == 0 {
			return nil, badRequest("receiverId is required"), nil
		}
		if data.Content == "" && data.AttachmentURL == nil {
			return nil, badRequest("content or attachmentUrl is required"), nil
		}
		return &core.Command{
			Kind:          core.CommandSendMessage,
			ReceiverID:    data.ReceiverID,
			Content:       data.Content,
			AttachmentURL: data.AttachmentURL,
		}, nil, nil

	case proto.InboundTypeTyping:
		var data proto.TypingData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.ReceiverID == 0 {
			return nil, badRequest("receiverId is required"), nil
		}
		return &core.Command{
			Kind:       core.CommandTyping,
			ReceiverID: data.ReceiverID,
			IsTyping:   data.IsTyping,
		}, nil, nil

	case proto.InboundTypeEdit:
		var data proto.EditData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.MessageID == 0 {
			return nil, badRequest("messageId is required"), nil
		}
		if data.Content == "" {
			return nil, badRequest("content is required"), nil
		}
		return &core.Command{
			Kind:       core.CommandEditMessage,
			MessageID:  data.MessageID,
			Content:    data.Content,
			ReceiverID: data.ReceiverID,
		}, nil, nil

	case proto.InboundTypeDelete:
		var data proto.DeleteData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.MessageID == 0 {
			return nil, badRequest("messageId is required"), nil
		}
		return &core.Command{
			Kind:       core.CommandDeleteMessage,
			MessageID:  data.MessageID,
			ReceiverID: data.ReceiverID,
		}, nil, nil

	case proto.InboundTypeGroupChat:
		var data proto.GroupChatData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.GroupID == 0 {
			return nil, badRequest("groupId is required"), nil
		}
		if data.Content == "" && data.AttachmentURL == nil {
			return nil, badRequest("content or attachmentUrl is required"), nil
		}
		return &core.Command{
			Kind:          core.CommandSendGroupMessage,
			GroupID:       data.GroupID,
			Content:       data.Content,
			AttachmentURL: data.AttachmentURL,
		}, nil, nil

	case proto.InboundTypeGroupTyping:
		var data proto.GroupTypingData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.GroupID == 0 {
			return nil, badRequest("groupId is required"), nil
		}
		return &core.Command{
			Kind:     core.CommandGroupTyping,
			GroupID:  data.GroupID,
			IsTyping: data.IsTyping,
		}, nil, nil

	case proto.InboundTypeGroupEditMessage:
		var data proto.GroupEditData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.MessageID == 0 {
			return nil, badRequest("messageId is required"), nil
		}
		if data.Content == "" {
			return nil, badRequest("content is required"), nil
		}
		return &core.Command{
			Kind:      core.CommandEditGroupMessage,
			MessageID: data.MessageID,
			Content:   data.Content,
			GroupID:   data.GroupID,
		}, nil, nil

	case proto.InboundTypeGroupDeleteMessage:
		var data proto.GroupDeleteData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.MessageID == 0 {
			return nil, badRequest("messageId is required"), nil
		}
		return &core.Command{
			Kind:      core.CommandDeleteGroupMessage,
			MessageID: data.MessageID,
			GroupID:   data.GroupID,
		}, nil, nil

	default:
		return nil, &proto.ErrorPayload{Code: "invalid_message", Message: "unknown message type"}, nil
	}
}

func badRequest(msg string) *proto.ErrorPayload {
	return &proto.ErrorPayload{Code: core.ErrCodeBadRequest, Message: msg}
}

// outboundFromEvent maps a core event to its wire envelope.
func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessage:
		return proto.Outbound{
			Type: proto.OutboundTypeMessage,
			Data: messagePayload(event.Message),
		}
	case core.EventMessageEdit:
		return proto.Outbound{
			Type: proto.OutboundTypeMessageEdit,
			Data: messagePayload(event.Message),
		}
	case core.EventMessageDelete:
		return proto.Outbound{
			Type: proto.OutboundTypeMessageDelete,
			Data: proto.MessageDeletePayload{MessageID: event.MessageID},
		}
	case core.EventTyping:
		return proto.Outbound{
			Type: proto.OutboundTypeTyping,
			Data: proto.TypingPayload{UserID: event.UserID, IsTyping: event.IsTyping},
		}
	case core.EventGroupMessage:
		return proto.Outbound{
			Type: proto.OutboundTypeGroupMessage,
			Data: groupMessagePayload(event.GroupMessage),
		}
	case core.EventGroupMessageEdit:
		return proto.Outbound{
			Type: proto.OutboundTypeGroupMessageEdit,
			Data: groupMessagePayload(event.GroupMessage),
		}
	case core.EventGroupMessageDelete:
		return proto.Outbound{
			Type: proto.OutboundTypeGroupMessageDelete,
			Data: proto.GroupMessageDeletePayload{MessageID: event.MessageID, GroupID: event.GroupID},
		}
	case core.EventGroupTyping:
		return proto.Outbound{
			Type: proto.OutboundTypeGroupTyping,
			Data: proto.GroupTypingPayload{GroupID: event.GroupID, UserID: event.UserID, IsTyping: event.IsTyping},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{
				Type: proto.OutboundTypeError,
				Data: proto.ErrorPayload{Code: "unknown", Message: "unknown error"},
			}
		}
		return proto.Outbound{
			Type: proto.OutboundTypeError,
			Data: proto.ErrorPayload{Code: event.Error.Code, Message: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeError, Data: proto.ErrorPayload{Code: "unknown", Message: "unknown event"}}
	}
}

func messagePayload(msg *store.Message) proto.MessagePayload {
	return proto.MessagePayload{
		ID:            msg.ID,
		SenderID:      msg.SenderID,
		ReceiverID:    msg.ReceiverID,
		Content:       msg.Content,
		CreatedAt:     msg.CreatedAt,
		IsRead:        msg.IsRead,
		IsDeleted:     msg.IsDeleted,
		LastEditedAt:  msg.LastEditedAt,
		AttachmentURL: msg.AttachmentURL,
	}
}

func groupMessagePayload(msg *store.GroupMessage) proto.GroupMessagePayload {
	return proto.GroupMessagePayload{
		ID:            msg.ID,
		SenderID:      msg.SenderID,
		GroupID:       msg.GroupID,
		Content:       msg.Content,
		CreatedAt:     msg.CreatedAt,
		IsDeleted:     msg.IsDeleted,
		LastEditedAt:  msg.LastEditedAt,
		AttachmentURL: msg.AttachmentURL,
	}
}
