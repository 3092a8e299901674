package ui

import (
	"fmt"
	"os"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"linguachat/backend"
	"linguachat/chat"
)

const replyPreviewLimit = 80

func (c *controller) sendCurrentMessage() {
	chatID := c.currentSelectedChatID()
	if chatID == "" {
		c.setStatus("Select a chat before sending a message")
		return
	}

	content := strings.TrimSpace(c.messageInput.Text)
	if content == "" {
		return
	}
	c.messageInput.SetText("")

	reply := c.takePendingReply()

	go func() {
		req := c.newSendRequest(chatID, reply)
		req.Text = content
		if _, err := c.client.SendMessage(c.ctx, req); err != nil {
			c.setStatus(fmt.Sprintf("Send message failed: %v", err))
		}
		// No local append: the feed redelivers the list with the new
		// message, which keeps ordering authoritative.
	}()
}

func (c *controller) newSendRequest(chatID string, reply *chat.Message) backend.SendMessageRequest {
	peer, _ := c.selectedCounterpart()
	req := backend.SendMessageRequest{
		ChatID:      chatID,
		SenderID:    c.currentUser().UID,
		RecipientID: peer.UID,
	}
	if reply != nil {
		req.ReplyToID = reply.ID
		req.ReplyToName = c.senderDisplayName(reply.SenderID)
		req.ReplyToText = trimForPreview(reply.Text, replyPreviewLimit)
	}
	return req
}

// senderDisplayName resolves the precomputed label stored on reply
// previews. Only the two participants can author messages here.
func (c *controller) senderDisplayName(senderID string) string {
	user := c.currentUser()
	if senderID == user.UID {
		return valueOrDefault(user.DisplayName, "You")
	}
	peer, _ := c.selectedCounterpart()
	if senderID == peer.UID {
		return valueOrDefault(peer.DisplayName, peer.UID)
	}
	return senderID
}

func (c *controller) setPendingReply(message chat.Message) {
	c.convoMu.Lock()
	copied := message
	c.replyTo = &copied
	c.convoMu.Unlock()
	c.updateReplyBanner()
}

func (c *controller) clearPendingReply() {
	c.convoMu.Lock()
	c.replyTo = nil
	c.convoMu.Unlock()
	c.updateReplyBanner()
}

func (c *controller) takePendingReply() *chat.Message {
	c.convoMu.Lock()
	reply := c.replyTo
	c.replyTo = nil
	c.convoMu.Unlock()
	if reply != nil {
		c.updateReplyBanner()
	}
	return reply
}

func (c *controller) updateReplyBanner() {
	c.convoMu.Lock()
	reply := c.replyTo
	c.convoMu.Unlock()

	fyne.Do(func() {
		if c.replyBanner == nil || c.replyLabel == nil {
			return
		}
		if reply == nil {
			c.replyBanner.Hide()
			return
		}
		preview := trimForPreview(reply.Text, replyPreviewLimit)
		if preview == "" {
			preview = valueOrDefault(reply.FileName, "attachment")
		}
		c.replyLabel.SetText("Replying to: " + preview)
		c.replyBanner.Show()
	})
}

// attachMediaToCurrentChat runs the full attachment pipeline: pick,
// validate, classify, upload, send. Validation failures surface as a
// dialog before anything leaves the device.
func (c *controller) attachMediaToCurrentChat() {
	chatID := c.currentSelectedChatID()
	if chatID == "" {
		c.setStatus("Select a chat before attaching a file")
		return
	}

	fyne.Do(func() {
		dlg := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
			if err != nil {
				c.setStatus(fmt.Sprintf("Pick file failed: %v", err))
				return
			}
			if reader == nil || reader.URI() == nil {
				return
			}
			go c.uploadAndSendMedia(chatID, reader)
		}, c.window)
		dlg.Show()
	})
}

func (c *controller) uploadAndSendMedia(chatID string, reader fyne.URIReadCloser) {
	defer reader.Close()

	fileName := reader.URI().Name()
	var size int64
	if path := reader.URI().Path(); path != "" {
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
	}

	if err := backend.ValidateMedia(fileName, size); err != nil {
		c.showMediaRejection(fileName, err)
		return
	}

	user := c.currentUser()
	c.setStatus(fmt.Sprintf("Uploading %s...", fileName))
	mediaURL, err := c.client.UploadMedia(c.ctx, reader, fileName, user.UID, chatID)
	if err != nil {
		c.setStatus(fmt.Sprintf("Upload failed: %v", err))
		return
	}

	reply := c.takePendingReply()
	req := c.newSendRequest(chatID, reply)
	req.MediaURL = mediaURL
	req.MediaType = backend.ClassifyMedia(fileName)
	req.FileName = fileName
	req.FileSize = size
	if _, err := c.client.SendMessage(c.ctx, req); err != nil {
		c.setStatus(fmt.Sprintf("Send attachment failed: %v", err))
		return
	}
	c.setStatus(fmt.Sprintf("Sent %s", fileName))
}

// showMediaRejection explains why an attachment was refused. The send is
// blocked entirely, not downgraded.
func (c *controller) showMediaRejection(fileName string, cause error) {
	message := fmt.Sprintf("%s cannot be sent: %v", fileName, cause)
	fyne.Do(func() {
		dialog.ShowInformation("Attachment Blocked", message, c.window)
	})
}
