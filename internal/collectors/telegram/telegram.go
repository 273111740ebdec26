package telegram

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"dray/internal/collectors"
	"dray/internal/logger"
	"dray/internal/xray"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/tg"
	"golang.org/x/net/proxy"
)

const (
	defaultLimit   = 500
	historyPage    = 100
	defaultSession = "telegram.session"
)

type settings struct {
	apiID   int
	apiHash string
	limit   int
	session string
	chats   []int64
	proxy   string
}

func parseSettings(params map[string]interface{}) (settings, error) {
	s := settings{
		apiID:   collectors.Int(params, "api_id"),
		apiHash: collectors.String(params, "api_hash"),
		limit:   collectors.Int(params, "limit"),
		session: collectors.String(params, "session_file"),
		proxy:   collectors.String(params, "_proxy_url"),
	}
	if s.apiID == 0 || s.apiHash == "" {
		return s, fmt.Errorf("missing api_id or api_hash")
	}
	if s.limit <= 0 {
		s.limit = defaultLimit
	}
	if s.session == "" {
		s.session = defaultSession
	}
	if chats, ok := params["chats"].([]interface{}); ok {
		for _, chat := range chats {
			if id := collectors.Int(map[string]interface{}{"id": chat}, "id"); id != 0 {
				s.chats = append(s.chats, int64(id))
			}
		}
	}
	return s, nil
}

type TelegramCollector struct{}

// Collect logs in as a user account and scrapes share-links from the
// history of the configured chats. Params: api_id, api_hash, chats,
// limit (messages per chat), session_file.
func (c *TelegramCollector) Collect(ctx context.Context, params map[string]interface{}) ([]string, error) {
	s, err := parseSettings(params)
	if err != nil {
		return nil, err
	}

	var dialer proxy.Dialer = proxy.Direct
	if s.proxy != "" {
		u, err := url.Parse(s.proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		if dialer, err = proxy.FromURL(u, proxy.Direct); err != nil {
			return nil, fmt.Errorf("unsupported proxy: %w", err)
		}
		logger.Log.Infof("Telegram using proxy: %s", s.proxy)
	}

	if dir := filepath.Dir(s.session); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o700)
	}

	client := telegram.NewClient(s.apiID, s.apiHash, telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{Path: s.session},
		Resolver: dcs.Plain(dcs.PlainOptions{
			Dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
		}),
	})

	var links []string
	err = client.Run(ctx, func(ctx context.Context) error {
		flow := auth.NewFlow(termAuth{}, auth.SendCodeOptions{})
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
		logger.Log.Info("🔓 Telegram login successful")

		api := client.API()
		peers, err := resolvePeers(ctx, api)
		if err != nil {
			return err
		}
		for _, id := range s.chats {
			peer, ok := peers[id]
			if !ok {
				logger.Log.Warnf("Could not resolve chat ID %d (not joined or not among recent dialogs)", id)
				continue
			}
			found, scanned := scrapeChat(ctx, api, peer, s.limit)
			logger.Log.Infof("📥 Chat %d: %d links in %d messages", id, len(found), scanned)
			links = append(links, found...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return links, nil
}

// resolvePeers maps chat IDs, in both the bare and the Bot API (-100...)
// notation, to input peers using the recent dialog list.
func resolvePeers(ctx context.Context, api *tg.Client) (map[int64]tg.InputPeerClass, error) {
	dialogs, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      100,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get dialogs: %w", err)
	}

	var chats []tg.ChatClass
	switch d := dialogs.(type) {
	case *tg.MessagesDialogs:
		chats = d.Chats
	case *tg.MessagesDialogsSlice:
		chats = d.Chats
	}

	peers := make(map[int64]tg.InputPeerClass)
	for _, chat := range chats {
		switch c := chat.(type) {
		case *tg.Channel:
			p := &tg.InputPeerChannel{ChannelID: c.ID, AccessHash: c.AccessHash}
			peers[c.ID] = p
			peers[-1000000000000-c.ID] = p
		case *tg.Chat:
			p := &tg.InputPeerChat{ChatID: c.ID}
			peers[c.ID] = p
			peers[-c.ID] = p
		}
	}
	return peers, nil
}

// scrapeChat pages backwards through a chat's history until limit messages
// were read or the history ends.
func scrapeChat(ctx context.Context, api *tg.Client, peer tg.InputPeerClass, limit int) (links []string, scanned int) {
	offsetID := 0
	for scanned < limit {
		history, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     peer,
			Limit:    min(historyPage, limit-scanned),
			OffsetID: offsetID,
		})
		if err != nil {
			logger.Log.Errorf("Failed to fetch history page: %v", err)
			return links, scanned
		}

		var messages []tg.MessageClass
		switch h := history.(type) {
		case *tg.MessagesMessages:
			messages = h.Messages
		case *tg.MessagesMessagesSlice:
			messages = h.Messages
		case *tg.MessagesChannelMessages:
			messages = h.Messages
		}
		if len(messages) == 0 {
			return links, scanned
		}

		for _, msg := range messages {
			m, ok := msg.(*tg.Message)
			if !ok {
				continue
			}
			links = append(links, xray.ExtractLinks(m.Message)...)
			if offsetID == 0 || m.ID < offsetID {
				offsetID = m.ID
			}
		}
		scanned += len(messages)
	}
	return links, scanned
}

// termAuth asks for login details on the terminal.
type termAuth struct{}

func prompt(label string) string {
	fmt.Print(label)
	text, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(text)
}

func (termAuth) Phone(_ context.Context) (string, error) {
	return prompt("📞 Enter Phone Number: "), nil
}

func (termAuth) Password(_ context.Context) (string, error) {
	return prompt("🔐 Enter 2FA Password: "), nil
}

func (termAuth) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	return prompt("📩 Enter Code: "), nil
}

func (termAuth) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{
		FirstName: prompt("👤 Enter First Name: "),
		LastName:  prompt("👤 Enter Last Name: "),
	}, nil
}

func (termAuth) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return nil
}

func init() {
	collectors.Register("telegram", func() collectors.Collector {
		return &TelegramCollector{}
	})
}
