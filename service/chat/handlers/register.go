package handlers

import "linker/service/chat"

// RegisterAll installs the relay's inbound event handlers on s.
func RegisterAll(s *chat.Server) {
	d := s.Disp()
	d.Register(NewAuthHandler())
	d.Register(NewMessageHandler())
	d.Register(NewTypingHandler())
}
