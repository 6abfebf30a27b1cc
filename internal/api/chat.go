package api

import (
	"net/http"

	"taverna/internal/auth"
	"taverna/internal/chat"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (s *SiteAPI) conversation(c *gin.Context) *chat.Conversation {
	return s.chats.For(c.Request.Context(), auth.GuestID(c))
}

func (s *SiteAPI) GetChatMessages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": s.conversation(c).Messages()})
}

// SendChatMessage blocks until the assistant has answered. Clients that want
// the loading placeholder use the websocket instead.
func (s *SiteAPI) SendChatMessage(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := s.conversation(c).Send(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	s.metrics.RecordItemCards(len(reply.ItemCards))
	c.JSON(http.StatusOK, gin.H{"message": reply})
}

func (s *SiteAPI) ClearChat(c *gin.Context) {
	conv := s.conversation(c)
	conv.Clear(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"messages": conv.Messages()})
}
