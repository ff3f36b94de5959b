package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"PeakHour/internal/cache"
	"PeakHour/internal/calculator"
	"PeakHour/internal/logger"
	"PeakHour/internal/model"
	"PeakHour/internal/notifier"
	"PeakHour/internal/session"
)

// Callback data sent by the inline keyboards.
const (
	CallbackStartDaily  = "start_daily_stats"
	CallbackStartWeekly = "start_weekly_stats"
	selectAssetPrefix   = "select_asset_"
)

const (
	msgWelcome       = "哈囉！我是你的金融數據分析小幫手。\n我可以幫你統計資產的日內或每週高低點創立時間。\n\n請點擊下方按鈕開始："
	msgChooseAsset   = "請選擇您想統計的資產："
	msgInvalidN      = "輸入無效，請輸入一個正整數。"
	msgSystemError   = "系統錯誤，請重新 /start 開始。"
	msgCancelled     = "已取消，請重新 /start 開始。"
	msgNoWeeks       = "抱歉，在獲取的數據範圍內找不到足夠的完整週來進行統計。"
	assetsPerRow     = 3
	defaultFetchWait = 60 * time.Second
)

// Messenger delivers bot replies.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string, kb *notifier.InlineKeyboard) error
	Edit(ctx context.Context, chatID int64, messageID int, text string, kb *notifier.InlineKeyboard) error
	AnswerCallback(ctx context.Context, callbackID string) error
}

// SeriesProvider returns enough candles of an asset for n periods of mode.
type SeriesProvider interface {
	Series(ctx context.Context, symbol string, mode model.Mode, n int) ([]model.OHLCV, error)
}

// HistoryRecorder stores one row per stats request.
type HistoryRecorder interface {
	RecordRequest(ctx context.Context, rec *cache.RequestRecord) error
}

// Handlers drives the conversation for every user.
type Handlers struct {
	Messenger Messenger
	Sessions  session.Store
	Data      SeriesProvider
	History   HistoryRecorder
	Assets    []model.Asset
	Location  *time.Location
	FetchWait time.Duration
	Now       func() time.Time
	Log       *logger.Logger
}

// NewHandlers wires the conversation handlers.
func NewHandlers(m Messenger, sessions session.Store, data SeriesProvider, history HistoryRecorder,
	assets []model.Asset, loc *time.Location, fetchWait time.Duration, log *logger.Logger) *Handlers {
	if fetchWait <= 0 {
		fetchWait = defaultFetchWait
	}
	return &Handlers{
		Messenger: m,
		Sessions:  sessions,
		Data:      data,
		History:   history,
		Assets:    assets,
		Location:  loc,
		FetchWait: fetchWait,
		Now:       time.Now,
		Log:       log,
	}
}

// HandleUpdate dispatches one Telegram update.
func (h *Handlers) HandleUpdate(ctx context.Context, u notifier.Update) {
	switch {
	case u.CallbackQuery != nil:
		h.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.From != nil:
		h.handleMessage(ctx, u.Message)
	}
}

func (h *Handlers) handleCallback(ctx context.Context, q *notifier.CallbackQuery) {
	if err := h.Messenger.AnswerCallback(ctx, q.ID); err != nil {
		h.Log.Warn("answer callback failed", logger.NewField("error", err.Error()))
	}
	if q.Message == nil {
		return
	}
	userID, chatID, msgID := q.From.ID, q.Message.Chat.ID, q.Message.MessageID

	switch {
	case q.Data == CallbackStartDaily:
		h.startMode(ctx, userID, chatID, msgID, model.ModeDaily)
	case q.Data == CallbackStartWeekly:
		h.startMode(ctx, userID, chatID, msgID, model.ModeWeekly)
	case strings.HasPrefix(q.Data, selectAssetPrefix):
		h.selectAsset(ctx, userID, chatID, msgID, q.Data)
	default:
		h.Log.Debug("ignoring callback", logger.NewField("data", q.Data))
	}
}

func (h *Handlers) startMode(ctx context.Context, userID, chatID int64, msgID int, mode model.Mode) {
	sess, err := h.Sessions.Get(ctx, userID)
	if err != nil {
		h.fail(ctx, userID, chatID, fmt.Errorf("load session: %w", err))
		return
	}
	if err := h.Sessions.Put(ctx, sess.ChooseMode(mode)); err != nil {
		h.fail(ctx, userID, chatID, fmt.Errorf("store session: %w", err))
		return
	}
	if err := h.Messenger.Edit(ctx, chatID, msgID, msgChooseAsset, h.assetKeyboard(mode)); err != nil {
		h.Log.Error(fmt.Errorf("edit asset menu: %w", err), logger.NewField("user_id", userID))
	}
}

func (h *Handlers) assetKeyboard(mode model.Mode) *notifier.InlineKeyboard {
	buttons := make([]notifier.InlineButton, 0, len(h.Assets))
	for _, a := range h.Assets {
		buttons = append(buttons, notifier.InlineButton{
			Text:         a.Symbol,
			CallbackData: fmt.Sprintf("%s%s:%s", selectAssetPrefix, mode, a.Symbol),
		})
	}
	return notifier.KeyboardRows(buttons, assetsPerRow)
}

// parseAssetCallback splits "select_asset_<mode>:<symbol>".
func parseAssetCallback(data string) (model.Mode, string, bool) {
	head, symbol, ok := strings.Cut(strings.TrimPrefix(data, selectAssetPrefix), ":")
	if !ok || symbol == "" {
		return "", "", false
	}
	switch mode := model.Mode(head); mode {
	case model.ModeDaily, model.ModeWeekly:
		return mode, symbol, true
	}
	return "", "", false
}

func (h *Handlers) knownAsset(symbol string) bool {
	for _, a := range h.Assets {
		if a.Symbol == symbol {
			return true
		}
	}
	return false
}

func (h *Handlers) selectAsset(ctx context.Context, userID, chatID int64, msgID int, data string) {
	mode, symbol, ok := parseAssetCallback(data)
	if !ok || !h.knownAsset(symbol) {
		h.fail(ctx, userID, chatID, fmt.Errorf("bad asset callback %q", data))
		return
	}

	sess, err := h.Sessions.Get(ctx, userID)
	if err != nil {
		h.fail(ctx, userID, chatID, fmt.Errorf("load session: %w", err))
		return
	}
	// An expired or stale menu still carries the mode it was built for.
	if sess.State == session.StateIdle || sess.Mode != mode {
		sess = sess.ChooseMode(mode)
	}
	sess, err = sess.SelectAsset(symbol)
	if err != nil {
		h.fail(ctx, userID, chatID, err)
		return
	}
	if err := h.Sessions.Put(ctx, sess); err != nil {
		h.fail(ctx, userID, chatID, fmt.Errorf("store session: %w", err))
		return
	}

	unit, example := "天數", 30
	if mode == model.ModeWeekly {
		unit, example = "週數", 10
	}
	text := fmt.Sprintf("您已選擇資產：%s\n請輸入您想統計的%s N（例如：%d）：", symbol, unit, example)
	if err := h.Messenger.Edit(ctx, chatID, msgID, text, nil); err != nil {
		h.Log.Error(fmt.Errorf("edit count prompt: %w", err), logger.NewField("user_id", userID))
	}
}

func (h *Handlers) handleMessage(ctx context.Context, m *notifier.Message) {
	userID, chatID := m.From.ID, m.Chat.ID
	text := strings.TrimSpace(m.Text)

	switch command(text) {
	case "":
	case "/start":
		h.start(ctx, userID, chatID)
		return
	case "/cancel":
		h.clear(ctx, userID)
		h.reply(ctx, chatID, msgCancelled)
		return
	default:
		return
	}

	sess, err := h.Sessions.Get(ctx, userID)
	if err != nil {
		h.fail(ctx, userID, chatID, fmt.Errorf("load session: %w", err))
		return
	}
	if sess.State != session.StateAwaitingCount {
		return
	}

	n, err := strconv.Atoi(text)
	if err != nil || n <= 0 {
		h.reply(ctx, chatID, msgInvalidN)
		return
	}
	if !h.knownAsset(sess.Asset) {
		h.fail(ctx, userID, chatID, fmt.Errorf("session holds unknown asset %q", sess.Asset))
		return
	}

	h.runStats(ctx, sess, chatID, n)
	h.clear(ctx, userID)
}

// command returns the bot command at the start of text without its
// "@botname" suffix, or "" when text is not a command.
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	name, _, _ := strings.Cut(strings.Fields(text)[0], "@")
	return name
}

func (h *Handlers) start(ctx context.Context, userID, chatID int64) {
	h.clear(ctx, userID)
	kb := &notifier.InlineKeyboard{Rows: [][]notifier.InlineButton{
		{{Text: "📈 日內高低點統計", CallbackData: CallbackStartDaily}},
		{{Text: "🗓️ 每週高低點統計", CallbackData: CallbackStartWeekly}},
	}}
	if err := h.Messenger.Send(ctx, chatID, msgWelcome, kb); err != nil {
		h.Log.Error(fmt.Errorf("send welcome: %w", err), logger.NewField("user_id", userID))
	}
}

// runStats fetches, computes and replies for one completed conversation.
func (h *Handlers) runStats(ctx context.Context, sess session.Session, chatID int64, n int) {
	reqID := uuid.NewString()
	ctx = logger.WithRequestID(ctx, reqID)
	now := h.Now()

	if sess.Mode == model.ModeWeekly {
		h.reply(ctx, chatID, fmt.Sprintf("收到！正在為 %s 獲取並分析最近 %d 個完整週的數據，請稍候...", sess.Asset, n))
	} else {
		h.reply(ctx, chatID, fmt.Sprintf("收到！正在為 %s 獲取並分析最近 %d 天的數據，請稍候...", sess.Asset, n))
	}

	rec := &cache.RequestRecord{
		ID:        reqID,
		UserID:    sess.UserID,
		Asset:     sess.Asset,
		Mode:      string(sess.Mode),
		N:         n,
		CreatedAt: now,
	}
	report, res, err := h.compute(ctx, sess, n, now)
	if err != nil {
		rec.Outcome = outcome(err)
		h.Log.WarnContext(ctx, "stats request failed",
			logger.NewField("asset", sess.Asset), logger.NewField("mode", sess.Mode),
			logger.NewField("n", n), logger.NewField("error", err.Error()))
		h.reply(ctx, chatID, failureMessage(sess.Asset, err))
	} else {
		rec.Outcome = "ok"
		rec.Periods = res.PeriodsProcessed
		h.Log.InfoContext(ctx, "stats report sent",
			logger.NewField("asset", sess.Asset), logger.NewField("mode", sess.Mode),
			logger.NewField("n", n), logger.NewField("periods", res.PeriodsProcessed))
		h.reply(ctx, chatID, report)
	}

	if h.History != nil {
		if err := h.History.RecordRequest(ctx, rec); err != nil {
			h.Log.ErrorContext(ctx, fmt.Errorf("record request: %w", err))
		}
	}
}

func (h *Handlers) compute(ctx context.Context, sess session.Session, n int, now time.Time) (string, *model.StatsResult, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, h.FetchWait)
	defer cancel()

	bars, err := h.Data.Series(fetchCtx, sess.Asset, sess.Mode, n)
	if err != nil {
		return "", nil, fmt.Errorf("fetch series: %w", err)
	}

	zone := notifier.ZoneLine(h.Location, now)
	if sess.Mode == model.ModeWeekly {
		res, err := calculator.ComputeWeekly(bars, n, now, h.Location)
		if err != nil {
			return "", nil, err
		}
		return notifier.WeeklyReport(sess.Asset, zone, res), res, nil
	}
	res, err := calculator.ComputeDaily(bars, n, now, h.Location)
	if err != nil {
		return "", nil, err
	}
	return notifier.DailyReport(sess.Asset, zone, res), res, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, calculator.ErrNoData):
		return "no_data"
	case errors.Is(err, calculator.ErrInsufficientWindow):
		return "insufficient_window"
	case errors.Is(err, calculator.ErrNoCompletePeriods):
		return "no_complete_periods"
	default:
		return "fetch_failed"
	}
}

// failureMessage maps a failed request to the text shown to the user.
func failureMessage(asset string, err error) string {
	if errors.Is(err, calculator.ErrNoCompletePeriods) {
		return msgNoWeeks
	}
	return fmt.Sprintf("抱歉，無法為 %s 獲取或分析數據。", asset)
}

func (h *Handlers) fail(ctx context.Context, userID, chatID int64, err error) {
	h.Log.ErrorContext(ctx, err, logger.NewField("user_id", userID))
	h.clear(ctx, userID)
	h.reply(ctx, chatID, msgSystemError)
}

func (h *Handlers) clear(ctx context.Context, userID int64) {
	if err := h.Sessions.Clear(ctx, userID); err != nil {
		h.Log.Warn("clear session failed", logger.NewField("user_id", userID), logger.NewField("error", err.Error()))
	}
}

func (h *Handlers) reply(ctx context.Context, chatID int64, text string) {
	if err := h.Messenger.Send(ctx, chatID, text, nil); err != nil {
		h.Log.ErrorContext(ctx, fmt.Errorf("send reply: %w", err), logger.NewField("chat_id", chatID))
	}
}
