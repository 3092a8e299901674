package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"linguachat/backend"
	"linguachat/chat"
	"linguachat/config"
	"linguachat/storage"
)

// RunOptions configures the GUI runtime.
type RunOptions struct {
	Config     *config.ClientConfig
	ConfigPath string
	Store      *storage.Store
	Client     *backend.Client
	Translator chat.Translator
	Overlay    *chat.Overlay
	User       backend.Profile
}

type controller struct {
	app    fyne.App
	window fyne.Window

	cfg        *config.ClientConfig
	cfgPath    string
	store      *storage.Store
	client     *backend.Client
	translator chat.Translator
	overlay    *chat.Overlay

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once

	userMu sync.RWMutex
	user   backend.Profile

	chatList *chat.ChatList

	chatsMu        sync.RWMutex
	chats          []chat.ChatSummary
	selectedChatID string
	selectedPeer   backend.Profile

	// mountGen increments on every mount and close; in-flight mount
	// goroutines present their token when committing state so a superseded
	// mount can never store a stream or publish a batch.
	convoMu     sync.Mutex
	mountGen    uint64
	stream      *chat.Stream
	readTracker *chat.ReadTracker
	messages    []chat.Message
	replyTo     *chat.Message

	chatListWidget *widget.List
	chatHeader     *widget.Label
	translateBtn   *widget.Button
	contactBtn     *widget.Button
	transcriptBox  *fyne.Container
	transcript     *container.Scroll
	messageInput   *messageEntry
	replyBanner    *fyne.Container
	replyLabel     *widget.Label
	composer       *fyne.Container
	statusLabel    *widget.Label
}

// Run starts the GUI and blocks until the window closes.
func Run(options RunOptions) error {
	if err := options.validate(); err != nil {
		return err
	}

	app := fyneapp.NewWithID("linguachat")
	ctrl := newController(app, options)
	return ctrl.run()
}

func (o RunOptions) validate() error {
	if o.Config == nil {
		return errors.New("config is required")
	}
	if o.ConfigPath == "" {
		return errors.New("config path is required")
	}
	if o.Store == nil {
		return errors.New("store is required")
	}
	if o.Client == nil {
		return errors.New("backend client is required")
	}
	if o.Translator == nil {
		return errors.New("translator is required")
	}
	if o.Overlay == nil {
		return errors.New("translation overlay is required")
	}
	if strings.TrimSpace(o.User.UID) == "" {
		return errors.New("signed-in user is required")
	}
	return nil
}

func newController(app fyne.App, options RunOptions) *controller {
	ctx, cancel := context.WithCancel(context.Background())

	ctrl := &controller{
		app:        app,
		window:     app.NewWindow("LinguaChat"),
		cfg:        options.Config,
		cfgPath:    options.ConfigPath,
		store:      options.Store,
		client:     options.Client,
		translator: options.Translator,
		overlay:    options.Overlay,
		user:       options.User,
		ctx:        ctx,
		cancel:     cancel,
	}

	ctrl.window.Resize(fyne.NewSize(1100, 720))
	ctrl.buildMainWindow()
	return ctrl
}

func (c *controller) run() error {
	if err := c.startChatList(); err != nil {
		c.shutdown()
		return err
	}
	c.setStatus("Ready")

	c.window.SetCloseIntercept(func() {
		c.shutdown()
		c.window.SetCloseIntercept(nil)
		c.window.Close()
	})
	c.window.ShowAndRun()
	c.shutdown()
	return nil
}

func (c *controller) shutdown() {
	c.shutdownOnce.Do(func() {
		c.cancel()
		c.closeConversation()
		if c.chatList != nil {
			c.chatList.Close()
		}
		c.overlay.Wait()
		if c.store != nil {
			_ = c.store.Close()
		}
	})
}

func (c *controller) buildMainWindow() {
	left := c.buildChatListPane()
	right := c.buildConversationPane()

	split := container.NewHSplit(left, right)
	split.Offset = 0.3

	c.statusLabel = widget.NewLabel("Starting...")
	content := container.NewBorder(nil, c.statusLabel, nil, nil, split)
	c.window.SetContent(content)
}

func (c *controller) startChatList() error {
	list, err := chat.OpenChatList(chat.ChatListOptions{
		ViewerID: c.currentUser().UID,
		Subscribe: func(userID string, onSnapshot func([]backend.Chat), onError func(error)) (chat.Closer, error) {
			return c.client.SubscribeChats(userID, onSnapshot, onError)
		},
		Profile:     c.client.GetProfile,
		HasMessages: c.client.HasMessages,
		Unread:      c.client.UnreadMessages,
		OnList:      c.handleChatList,
		OnError:     c.handleBackgroundError,
	})
	if err != nil {
		return fmt.Errorf("open chat list: %w", err)
	}
	c.chatList = list
	return nil
}

func (c *controller) handleBackgroundError(err error) {
	if err == nil {
		return
	}
	c.setStatus(err.Error())
}

func (c *controller) setStatus(message string) {
	if strings.TrimSpace(message) == "" {
		message = "Ready"
	}
	fyne.Do(func() {
		if c.statusLabel != nil {
			c.statusLabel.SetText(message)
		}
	})
}

func (c *controller) currentUser() backend.Profile {
	c.userMu.RLock()
	defer c.userMu.RUnlock()
	return c.user
}

func (c *controller) setUser(user backend.Profile) {
	c.userMu.Lock()
	c.user = user
	c.userMu.Unlock()
}

func (c *controller) currentSelectedChatID() string {
	c.chatsMu.RLock()
	defer c.chatsMu.RUnlock()
	return c.selectedChatID
}
