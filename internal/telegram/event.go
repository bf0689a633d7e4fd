package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/digestbot/internal/chat"
	"github.com/edgard/digestbot/internal/errs"
)

const (
	photoDownloadTimeout = 30 * time.Second
	maxPhotoSize         = 10 * 1024 * 1024
)

// FileAPI is the part of the Bot API needed to download files.
type FileAPI interface {
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
}

// EventDecoder turns Telegram updates into chat events.
type EventDecoder struct {
	files      FileAPI
	httpClient *http.Client
}

// NewEventDecoder creates a decoder that downloads photos through files.
func NewEventDecoder(files FileAPI, httpClient *http.Client) *EventDecoder {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &EventDecoder{files: files, httpClient: httpClient}
}

// Decode converts an update. It reports false for updates that carry no
// message, or a group message that is neither text nor a photo.
func (d *EventDecoder) Decode(update *models.Update) (chat.Event, bool) {
	if update == nil || update.Message == nil {
		return chat.Event{}, false
	}
	msg := update.Message

	ev := chat.Event{
		GroupID:   strconv.FormatInt(msg.Chat.ID, 10),
		GroupName: msg.Chat.Title,
		Text:      msg.Text,
		MessageID: int64(msg.ID),
	}
	if msg.From != nil {
		ev.From = chat.Sender{
			FirstName: msg.From.FirstName,
			Username:  msg.From.Username,
			IsBot:     msg.From.IsBot,
		}
	}
	if msg.SenderChat != nil {
		ev.From.ChannelTitle = msg.SenderChat.Title
	}

	switch {
	case msg.Chat.Type != models.ChatTypeGroup && msg.Chat.Type != models.ChatTypeSupergroup:
		ev.Kind = chat.KindNonGroup
	case len(msg.Photo) > 0:
		ev.Kind = chat.KindPhoto
		ev.FetchPhoto = d.photoFetcher(largestPhoto(msg.Photo).FileID)
	case msg.Text != "":
		ev.Kind = chat.KindText
	default:
		return chat.Event{}, false
	}
	return ev, true
}

// largestPhoto picks the rendition with the most pixels.
func largestPhoto(sizes []models.PhotoSize) models.PhotoSize {
	best := sizes[len(sizes)-1]
	for _, p := range sizes {
		if p.Width*p.Height > best.Width*best.Height {
			best = p
		}
	}
	return best
}

func (d *EventDecoder) photoFetcher(fileID string) chat.PhotoFetcher {
	return func(ctx context.Context) ([]byte, string, error) {
		data, err := d.download(ctx, fileID)
		if err != nil {
			return nil, "", errs.Transport(fmt.Sprintf("failed to download photo %s", fileID), err)
		}
		// Telegram re-encodes every photo rendition as JPEG.
		return data, "image/jpeg", nil
	}
}

func (d *EventDecoder) download(ctx context.Context, fileID string) (data []byte, err error) {
	downloadCtx, cancel := context.WithTimeout(ctx, photoDownloadTimeout)
	defer cancel()

	fileObj, err := d.files.GetFile(downloadCtx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file info from Telegram: %w", err)
	}
	if fileObj.FilePath == "" {
		return nil, fmt.Errorf("empty file path returned from Telegram")
	}

	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, d.files.FileDownloadLink(fileObj), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxPhotoSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("received empty file data")
	}
	return data, nil
}
