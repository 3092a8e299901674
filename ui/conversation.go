package ui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"linguachat/backend"
	"linguachat/chat"
	"linguachat/config"
	"linguachat/translate"
)

func (c *controller) buildConversationPane() fyne.CanvasObject {
	c.chatHeader = widget.NewLabel("Select a chat to start messaging")
	c.chatHeader.TextStyle = fyne.TextStyle{Bold: true}
	c.chatHeader.Truncation = fyne.TextTruncateEllipsis

	c.translateBtn = widget.NewButtonWithIcon("", theme.MenuExpandIcon(), c.showTranslationDialog)
	c.translateBtn.Hide()
	c.contactBtn = widget.NewButtonWithIcon("", theme.AccountIcon(), c.showContactDialog)
	c.contactBtn.Hide()
	headerActions := container.NewHBox(c.translateBtn, c.contactBtn)
	header := container.NewPadded(container.NewBorder(nil, nil, nil, headerActions, c.chatHeader))

	emptyLabel := widget.NewLabel("No messages yet")
	emptyLabel.Alignment = fyne.TextAlignCenter
	emptyLabel.Importance = widget.LowImportance
	c.transcriptBox = container.NewVBox(emptyLabel)
	c.transcript = container.NewVScroll(c.transcriptBox)

	c.messageInput = newMessageEntry(c.sendCurrentMessage)
	c.messageInput.SetPlaceHolder("Type a message...")
	c.messageInput.Wrapping = fyne.TextWrapWord
	c.messageInput.SetMinRowsVisible(2)

	c.replyLabel = widget.NewLabel("")
	c.replyLabel.Truncation = fyne.TextTruncateEllipsis
	cancelReplyBtn := widget.NewButtonWithIcon("", theme.CancelIcon(), c.clearPendingReply)
	c.replyBanner = container.NewBorder(nil, nil, nil, cancelReplyBtn, c.replyLabel)
	c.replyBanner.Hide()

	attachBtn := widget.NewButtonWithIcon("", theme.MailAttachmentIcon(), c.attachMediaToCurrentChat)
	sendBtn := widget.NewButton("Send", c.sendCurrentMessage)
	sendBtn.Importance = widget.HighImportance
	controls := container.NewVBox(sendBtn, attachBtn)
	inputPane := container.NewBorder(c.replyBanner, nil, nil, container.NewPadded(controls), c.messageInput)
	c.composer = container.NewPadded(inputPane)
	c.composer.Hide()

	return container.NewBorder(
		container.NewVBox(header, widget.NewSeparator()),
		container.NewVBox(widget.NewSeparator(), c.composer),
		nil, nil, c.transcript,
	)
}

// openConversation mounts a chat: snapshot-then-clear the unread set, then
// start the live stream with the viewer's current filters and translation
// settings. The mount commits its state under a generation token so a
// remount that overtakes an in-flight one cannot leak the loser's stream
// or have it publish with a stale configuration.
func (c *controller) openConversation(chatID string) {
	c.closeConversation()
	c.updateConversationHeader()
	gen := c.beginMount()

	go func() {
		user := c.currentUser()
		tracker := chat.NewReadTracker(c.client)
		if _, err := tracker.Open(c.ctx, chatID, user.UID); err != nil {
			// The snapshot still renders; only the backend-side clear failed.
			c.setStatus(fmt.Sprintf("Mark read failed: %v", err))
		}

		// Commit the tracker and clear stale transcript state BEFORE the
		// subscription goes live: the first delivery may arrive at any
		// point after OpenStream returns and must render with the unread
		// snapshot already in place.
		if !c.commitMountState(gen, tracker) {
			return
		}

		settings := c.overlay.Settings(chatID)
		stream, err := chat.OpenStream(chat.StreamOptions{
			ChatID:             chatID,
			ViewerID:           user.UID,
			BlockList:          user.BlockList,
			TranslationEnabled: settings.Enabled,
			TargetLanguage:     settings.TargetLanguage,
			Subscribe: func(id string, onSnapshot func([]backend.Message), onError func(error)) (chat.Closer, error) {
				return c.client.SubscribeMessages(id, onSnapshot, onError)
			},
			Ledger:     c.store,
			Translator: c.translator,
			OnBatch: func(batch []chat.Message) {
				c.handleBatch(gen, batch)
			},
			OnError: c.handleBackgroundError,
		})
		if err != nil {
			c.setStatus(fmt.Sprintf("Open chat failed: %v", err))
			return
		}

		if !c.commitMountStream(gen, stream) {
			// A newer mount or a close overtook this one.
			stream.Close()
		}
	}()
}

// beginMount invalidates any in-flight mount and returns the token the new
// mount must present when committing state.
func (c *controller) beginMount() uint64 {
	c.convoMu.Lock()
	defer c.convoMu.Unlock()
	c.mountGen++
	return c.mountGen
}

// commitMountState installs the read tracker and resets transcript state
// for one mount. A false return means the mount was superseded.
func (c *controller) commitMountState(gen uint64, tracker *chat.ReadTracker) bool {
	c.convoMu.Lock()
	defer c.convoMu.Unlock()
	if gen != c.mountGen {
		return false
	}
	c.readTracker = tracker
	c.messages = nil
	c.replyTo = nil
	return true
}

// commitMountStream stores the live stream for one mount. A false return
// means the mount was superseded and the caller still owns the stream.
func (c *controller) commitMountStream(gen uint64, stream *chat.Stream) bool {
	c.convoMu.Lock()
	defer c.convoMu.Unlock()
	if gen != c.mountGen {
		return false
	}
	c.stream = stream
	return true
}

func (c *controller) closeConversation() {
	c.convoMu.Lock()
	// Invalidate in-flight mounts; their commits will fail and close
	// whatever they opened.
	c.mountGen++
	stream := c.stream
	c.stream = nil
	c.readTracker = nil
	c.messages = nil
	c.replyTo = nil
	c.convoMu.Unlock()

	if stream != nil {
		stream.Close()
	}
	c.renderTranscript()
	c.updateReplyBanner()
}

// reopenConversation tears down and remounts the current chat so a new
// filter or translation configuration takes effect.
func (c *controller) reopenConversation() {
	chatID := c.currentSelectedChatID()
	if chatID == "" {
		return
	}
	c.openConversation(chatID)
}

func (c *controller) handleBatch(gen uint64, batch []chat.Message) {
	c.convoMu.Lock()
	if gen != c.mountGen {
		// Delivery from a superseded mount of the same chat.
		c.convoMu.Unlock()
		return
	}
	c.messages = batch
	c.convoMu.Unlock()
	c.renderTranscript()
}

// currentUnreadIDs reads the unread snapshot recorded by the current
// mount's tracker, or nil when no chat is mounted.
func (c *controller) currentUnreadIDs(chatID string) map[string]struct{} {
	c.convoMu.Lock()
	tracker := c.readTracker
	c.convoMu.Unlock()
	if tracker == nil {
		return nil
	}
	return tracker.Snapshot(chatID)
}

func (c *controller) renderTranscript() {
	c.convoMu.Lock()
	messages := make([]chat.Message, len(c.messages))
	copy(messages, c.messages)
	c.convoMu.Unlock()

	unread := c.currentUnreadIDs(c.currentSelectedChatID())

	items := chat.GroupForDisplay(messages, unread)
	user := c.currentUser()
	now := time.Now()

	fyne.Do(func() {
		if c.transcriptBox == nil {
			return
		}
		c.transcriptBox.RemoveAll()
		if len(items) == 0 {
			empty := widget.NewLabel("No messages yet")
			empty.Alignment = fyne.TextAlignCenter
			empty.Importance = widget.LowImportance
			c.transcriptBox.Add(empty)
		} else {
			for _, item := range items {
				c.transcriptBox.Add(c.renderDisplayItem(item, user.UID, now))
			}
		}
		c.transcriptBox.Refresh()
		if c.transcript != nil {
			c.transcript.ScrollToBottom()
		}
	})
}

func (c *controller) renderDisplayItem(item chat.DisplayItem, viewerID string, now time.Time) fyne.CanvasObject {
	switch item.Kind {
	case chat.DisplayDate:
		return renderDateRow(item.Day, now)
	case chat.DisplayUnread:
		return renderUnreadRow()
	default:
		return c.renderMessageRow(item.Message, viewerID)
	}
}

func renderDateRow(day, now time.Time) fyne.CanvasObject {
	text := canvas.NewText(formatDaySeparator(day, now), colorMuted)
	text.TextSize = 11
	text.TextStyle = fyne.TextStyle{Bold: true}
	return container.NewCenter(newRoundedBg(ctpSurface0, 8, text))
}

func renderUnreadRow() fyne.CanvasObject {
	text := canvas.NewText("New messages", colorAccent)
	text.TextSize = 11
	text.TextStyle = fyne.TextStyle{Bold: true}
	return container.NewCenter(text)
}

func (c *controller) renderMessageRow(message chat.Message, viewerID string) fyne.CanvasObject {
	outgoing := message.SenderID == viewerID

	items := make([]fyne.CanvasObject, 0, 5)
	if message.ReplyToID != "" {
		items = append(items, renderReplyPreview(message))
	}

	displayText := message.Text
	translated := message.TranslatedText != "" && message.TranslatedText != message.Text
	if translated {
		displayText = message.TranslatedText
	}
	if displayText != "" {
		body := widget.NewLabel(displayText)
		body.Wrapping = fyne.TextWrapWord
		items = append(items, body)
	}
	if translated {
		original := canvas.NewText(message.Text, colorTranslated)
		original.TextSize = 11
		items = append(items, original)
	}

	if message.MediaURL != "" {
		items = append(items, c.renderMediaRow(message))
	}

	ts := canvas.NewText(formatTimestamp(message.Timestamp), colorMuted)
	ts.TextSize = 11
	ts.Alignment = fyne.TextAlignTrailing

	replyBtn := widget.NewButtonWithIcon("", theme.MailReplyIcon(), func() {
		c.setPendingReply(message)
	})
	replyBtn.Importance = widget.LowImportance
	deleteBtn := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {
		c.showDeleteDialog(message, outgoing)
	})
	deleteBtn.Importance = widget.LowImportance
	actions := container.NewHBox(replyBtn, deleteBtn)
	items = append(items, container.NewBorder(nil, nil, nil, actions, ts))

	bgColor := colorIncomingMsg
	if outgoing {
		bgColor = colorOutgoingMsg
	}
	bubble := newRoundedBg(bgColor, 10, container.NewVBox(items...))

	if outgoing {
		return container.NewGridWithColumns(2, layout.NewSpacer(), bubble)
	}
	return container.NewGridWithColumns(2, bubble, layout.NewSpacer())
}

func renderReplyPreview(message chat.Message) fyne.CanvasObject {
	name := canvas.NewText(valueOrDefault(message.ReplyToName, "Reply"), colorAccent)
	name.TextSize = 11
	name.TextStyle = fyne.TextStyle{Bold: true}
	quoted := widget.NewLabel(message.ReplyToText)
	quoted.Truncation = fyne.TextTruncateEllipsis
	return newRoundedBg(ctpBase, 6, container.NewVBox(name, quoted))
}

func (c *controller) renderMediaRow(message chat.Message) fyne.CanvasObject {
	name := valueOrDefault(message.FileName, message.MediaType)
	title := widget.NewLabel("📎 " + name)
	title.TextStyle = fyne.TextStyle{Bold: true}
	title.Truncation = fyne.TextTruncateEllipsis

	meta := canvas.NewText(
		fmt.Sprintf("%s · %s", valueOrDefault(message.MediaType, backend.MediaTypeFile), formatBytes(message.FileSize)),
		colorMuted,
	)
	meta.TextSize = 11

	openBtn := widget.NewButton("Open", func() {
		parsed, err := url.Parse(message.MediaURL)
		if err != nil {
			c.setStatus(fmt.Sprintf("Open media failed: %v", err))
			return
		}
		if err := c.app.OpenURL(parsed); err != nil {
			c.setStatus(fmt.Sprintf("Open media failed: %v", err))
		}
	})
	openBtn.Importance = widget.LowImportance

	return container.NewBorder(nil, nil, nil, openBtn, container.NewVBox(title, meta))
}

// showDeleteDialog offers delete-for-me always and delete-for-everyone only
// on the viewer's own messages.
func (c *controller) showDeleteDialog(message chat.Message, outgoing bool) {
	chatID := c.currentSelectedChatID()
	if chatID == "" {
		return
	}

	fyne.Do(func() {
		var dlg dialog.Dialog

		forMeBtn := widget.NewButton("Delete for me", func() {
			dlg.Hide()
			go c.deleteForMe(chatID, message.ID)
		})
		buttons := []fyne.CanvasObject{forMeBtn}

		if outgoing {
			forEveryoneBtn := widget.NewButton("Delete for everyone", func() {
				dlg.Hide()
				go c.deleteForEveryone(chatID, message.ID)
			})
			forEveryoneBtn.Importance = widget.DangerImportance
			buttons = append(buttons, forEveryoneBtn)
		}

		content := container.NewVBox(
			widget.NewLabel("Delete this message?"),
			container.NewHBox(buttons...),
		)
		dlg = dialog.NewCustom("Delete Message", "Cancel", content, c.window)
		dlg.Show()
	})
}

func (c *controller) deleteForMe(chatID, messageID string) {
	if err := c.store.RecordLocalDeletion(chatID, messageID); err != nil {
		c.setStatus(fmt.Sprintf("Delete for me failed: %v", err))
		return
	}

	// Hide immediately instead of waiting for the next feed delivery.
	c.convoMu.Lock()
	kept := c.messages[:0]
	for _, m := range c.messages {
		if m.ID != messageID {
			kept = append(kept, m)
		}
	}
	c.messages = kept
	c.convoMu.Unlock()
	c.renderTranscript()
}

func (c *controller) deleteForEveryone(chatID, messageID string) {
	if err := c.client.DeleteForEveryone(c.ctx, chatID, messageID); err != nil {
		c.setStatus(fmt.Sprintf("Delete for everyone failed: %v", err))
		return
	}
	// The feed redelivers the list without the message; nothing local to do.
}

func (c *controller) updateConversationHeader() {
	peer, hasChat := c.selectedCounterpart()
	headerText := "Select a chat to start messaging"
	translateText := ""
	if hasChat {
		headerText = valueOrDefault(peer.DisplayName, peer.UID)
		settings := c.overlay.Settings(c.currentSelectedChatID())
		if settings.Enabled {
			translateText = "Translate: " + translate.LanguageName(settings.TargetLanguage)
		} else {
			translateText = "Translate: off"
		}
	}

	fyne.Do(func() {
		if c.chatHeader != nil {
			c.chatHeader.SetText(headerText)
		}
		if c.composer != nil {
			if hasChat {
				c.composer.Show()
			} else {
				c.composer.Hide()
				if c.messageInput != nil {
					c.messageInput.SetText("")
				}
			}
		}
		if c.translateBtn != nil {
			c.translateBtn.SetText(translateText)
			if hasChat {
				c.translateBtn.Show()
			} else {
				c.translateBtn.Hide()
			}
		}
		if c.contactBtn != nil {
			if hasChat {
				c.contactBtn.Show()
			} else {
				c.contactBtn.Hide()
			}
		}
	})
}

// showTranslationDialog edits the per-chat translation settings. Saving
// remounts the conversation so the new configuration applies to the whole
// transcript.
func (c *controller) showTranslationDialog() {
	chatID := c.currentSelectedChatID()
	if chatID == "" {
		return
	}
	settings := c.overlay.Settings(chatID)

	enabledCheck := widget.NewCheck("Translate incoming messages", nil)
	enabledCheck.SetChecked(settings.Enabled)

	langEntry := widget.NewSelectEntry([]string{"en", "es", "fr", "de", "it", "pt-BR", "ja", "zh"})
	langEntry.SetText(settings.TargetLanguage)

	defaultCheck := widget.NewCheck("Use as default for new chats", nil)

	form := container.NewVBox(
		enabledCheck,
		widget.NewLabel("Target language"),
		langEntry,
		defaultCheck,
	)

	fyne.Do(func() {
		dialog.ShowCustomConfirm("Translation", "Save", "Cancel", form, func(save bool) {
			if !save {
				return
			}
			tag, err := translate.NormalizeTag(langEntry.Text)
			if err != nil {
				dialog.ShowError(fmt.Errorf("unrecognized language %q", langEntry.Text), c.window)
				return
			}
			c.overlay.SetSettings(chatID, chat.Settings{
				Enabled:        enabledCheck.Checked,
				TargetLanguage: tag,
			})
			if defaultCheck.Checked {
				go c.saveDefaultLanguage(tag)
			}
			c.updateConversationHeader()
			c.reopenConversation()
		}, c.window)
	})
}

func (c *controller) saveDefaultLanguage(tag string) {
	c.cfg.TargetLanguage = tag
	if err := config.Save(c.cfgPath, c.cfg); err != nil {
		c.setStatus(fmt.Sprintf("Save config failed: %v", err))
	}
}

// showContactDialog shows the counterpart profile with block and
// delete-chat actions.
func (c *controller) showContactDialog() {
	chatID := c.currentSelectedChatID()
	peer, hasChat := c.selectedCounterpart()
	if !hasChat {
		return
	}

	user := c.currentUser()
	blocked := user.Blocked(peer.UID)

	blockLabel := "Block"
	if blocked {
		blockLabel = "Unblock"
	}

	var dlg dialog.Dialog
	blockBtn := widget.NewButton(blockLabel, func() {
		dlg.Hide()
		go c.toggleBlock(peer.UID, !blocked)
	})
	if !blocked {
		blockBtn.Importance = widget.DangerImportance
	}

	deleteChatBtn := widget.NewButton("Delete chat", func() {
		dlg.Hide()
		go c.deleteCurrentChat(chatID)
	})
	deleteChatBtn.Importance = widget.DangerImportance

	info := container.NewVBox(
		widget.NewLabel(valueOrDefault(peer.DisplayName, peer.UID)),
		widget.NewLabel("ID: "+peer.UID),
		widget.NewSeparator(),
		container.NewHBox(blockBtn, deleteChatBtn),
	)

	fyne.Do(func() {
		dlg = dialog.NewCustom("Contact", "Close", info, c.window)
		dlg.Show()
	})
}

// toggleBlock flips the block state for a contact and remounts the open
// conversation so the sender filter picks up the new list.
func (c *controller) toggleBlock(targetID string, block bool) {
	user := c.currentUser()

	var err error
	if block {
		err = c.client.BlockUser(c.ctx, user.UID, targetID)
	} else {
		err = c.client.UnblockUser(c.ctx, user.UID, targetID)
	}
	if err != nil {
		c.setStatus(fmt.Sprintf("Update block failed: %v", err))
		return
	}

	refreshed, err := c.client.GetProfile(c.ctx, user.UID)
	if err != nil {
		c.setStatus(fmt.Sprintf("Refresh profile failed: %v", err))
		return
	}
	c.setUser(*refreshed)

	if block {
		c.setStatus("Contact blocked")
	} else {
		c.setStatus("Contact unblocked")
	}
	c.reopenConversation()
}

func (c *controller) deleteCurrentChat(chatID string) {
	if err := c.client.MarkChatDeleted(c.ctx, chatID); err != nil {
		c.setStatus(fmt.Sprintf("Delete chat failed: %v", err))
		return
	}

	c.chatsMu.Lock()
	if c.selectedChatID == chatID {
		c.selectedChatID = ""
		c.selectedPeer = backend.Profile{}
	}
	c.chatsMu.Unlock()

	c.closeConversation()
	c.updateConversationHeader()
	c.setStatus("Chat deleted")
}

func trimForPreview(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
