package ui

import (
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"linguachat/backend"
	"linguachat/chat"
)

func (c *controller) buildChatListPane() fyne.CanvasObject {
	c.chatListWidget = widget.NewList(
		func() int {
			c.chatsMu.RLock()
			defer c.chatsMu.RUnlock()
			return len(c.chats)
		},
		func() fyne.CanvasObject {
			name := widget.NewLabel("")
			name.TextStyle = fyne.TextStyle{Bold: true}
			name.Truncation = fyne.TextTruncateEllipsis
			preview := canvas.NewText("", colorMuted)
			preview.TextSize = 11
			info := container.NewVBox(name, preview)
			badge := canvas.NewText("", colorUnreadBadge)
			badge.TextSize = 12
			badge.TextStyle = fyne.TextStyle{Bold: true}
			// Border(nil, nil, nil, right, center): Objects = [center, right]
			return container.NewBorder(nil, nil, nil, container.NewCenter(badge), info)
		},
		func(id widget.ListItemID, object fyne.CanvasObject) {
			row := object.(*fyne.Container)
			info := row.Objects[0].(*fyne.Container)
			name := info.Objects[0].(*widget.Label)
			preview := info.Objects[1].(*canvas.Text)
			badgeCenter := row.Objects[1].(*fyne.Container)
			badge := badgeCenter.Objects[0].(*canvas.Text)

			summary := c.chatByIndex(int(id))
			if summary == nil {
				name.SetText("")
				preview.Text = ""
				preview.Refresh()
				badge.Text = ""
				badge.Refresh()
				return
			}

			name.SetText(valueOrDefault(summary.Counterpart.DisplayName, summary.Counterpart.UID))
			preview.Text = summary.Chat.LastMessage
			preview.Refresh()
			badge.Text = unreadBadgeText(summary.UnreadCount)
			badge.Refresh()
		},
	)
	c.chatListWidget.OnSelected = func(id widget.ListItemID) {
		c.selectChatByIndex(int(id))
	}

	heading := widget.NewLabel("Chats")
	heading.TextStyle = fyne.TextStyle{Bold: true}
	newChatBtn := widget.NewButtonWithIcon("", theme.ContentAddIcon(), c.showNewChatDialog)
	topBar := container.NewBorder(nil, nil, heading, newChatBtn)

	return container.NewBorder(
		container.NewVBox(container.NewPadded(topBar), widget.NewSeparator()),
		nil, nil, nil, c.chatListWidget,
	)
}

// showNewChatDialog starts a conversation with a contact by ID. The chat
// is created lazily backend-side; it only shows up in other listings once
// the first message is exchanged.
func (c *controller) showNewChatDialog() {
	contactEntry := widget.NewEntry()
	contactEntry.SetPlaceHolder("Contact ID")

	form := container.NewVBox(
		widget.NewLabel("Start a chat with"),
		contactEntry,
	)

	fyne.Do(func() {
		dialog.ShowCustomConfirm("New Chat", "Start", "Cancel", form, func(start bool) {
			if !start {
				return
			}
			contactID := strings.TrimSpace(contactEntry.Text)
			if contactID == "" {
				return
			}
			go c.startChatWith(contactID)
		}, c.window)
	})
}

func (c *controller) startChatWith(contactID string) {
	user := c.currentUser()
	if contactID == user.UID {
		c.setStatus("Cannot start a chat with yourself")
		return
	}

	profile, err := c.client.GetProfile(c.ctx, contactID)
	if err != nil {
		c.setStatus(fmt.Sprintf("Look up contact failed: %v", err))
		return
	}

	created, err := c.client.GetOrCreateChat(c.ctx, user.UID, contactID)
	if err != nil {
		c.setStatus(fmt.Sprintf("Start chat failed: %v", err))
		return
	}

	c.chatsMu.Lock()
	c.selectedChatID = created.ID
	c.selectedPeer = *profile
	c.chatsMu.Unlock()

	c.openConversation(created.ID)
	c.updateConversationHeader()
}

// handleChatList receives each fully enriched snapshot from the aggregator.
func (c *controller) handleChatList(list []chat.ChatSummary) {
	selectedIndex := -1
	selectionLost := false

	c.chatsMu.Lock()
	c.chats = list
	if c.selectedChatID != "" {
		for i := range c.chats {
			if c.chats[i].Chat.ID == c.selectedChatID {
				selectedIndex = i
				break
			}
		}
		if selectedIndex < 0 {
			// The open chat disappeared from the listing (deleted on
			// another device or its counterpart is gone).
			c.selectedChatID = ""
			c.selectedPeer = backend.Profile{}
			selectionLost = true
		}
	}
	c.chatsMu.Unlock()

	fyne.Do(func() {
		if c.chatListWidget != nil {
			c.chatListWidget.Refresh()
			if selectedIndex >= 0 {
				c.chatListWidget.Select(selectedIndex)
			}
		}
	})

	if selectionLost {
		c.closeConversation()
		c.updateConversationHeader()
	}
}

func (c *controller) chatByIndex(index int) *chat.ChatSummary {
	c.chatsMu.RLock()
	defer c.chatsMu.RUnlock()
	if index < 0 || index >= len(c.chats) {
		return nil
	}
	summary := c.chats[index]
	return &summary
}

func (c *controller) selectChatByIndex(index int) {
	summary := c.chatByIndex(index)
	if summary == nil {
		return
	}

	c.chatsMu.Lock()
	alreadyOpen := c.selectedChatID == summary.Chat.ID
	c.selectedChatID = summary.Chat.ID
	c.selectedPeer = summary.Counterpart
	c.chatsMu.Unlock()

	if alreadyOpen {
		return
	}
	c.openConversation(summary.Chat.ID)
}

func (c *controller) selectedCounterpart() (backend.Profile, bool) {
	c.chatsMu.RLock()
	defer c.chatsMu.RUnlock()
	return c.selectedPeer, c.selectedChatID != ""
}
