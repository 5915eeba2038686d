package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"papum-backend/database"
	"papum-backend/logger"
	"papum-backend/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

const (
	sendTimeout = 15 * time.Second

	// Upper bound on deliveries in flight for one event.
	maxConcurrentSends = 4
)

// PushSender delivers a push notification to one device.
type PushSender interface {
	SendPush(ctx context.Context, token, title, body string, data map[string]string) error
}

// EmailSender delivers one HTML e-mail.
type EmailSender interface {
	SendEmail(ctx context.Context, toEmail, toName, subject, htmlBody string) error
}

// ============================================================
// PUSH NOTIFICATIONS via Firebase Cloud Messaging
// ============================================================

type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender initialises the Firebase app from a service account file.
func NewFCMSender(ctx context.Context, credentialsFile string) (*FCMSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return &FCMSender{client: client}, nil
}

func (s *FCMSender) SendPush(ctx context.Context, token, title, body string, data map[string]string) error {
	_, err := s.client.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{Sound: "default"},
		},
	})
	if err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}

// ============================================================
// EMAIL NOTIFICATIONS via SendGrid
// ============================================================

type SendGridSender struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

func NewSendGridSender(apiKey, from, fromName string) *SendGridSender {
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey), from: from, fromName: fromName}
}

func (s *SendGridSender) SendEmail(ctx context.Context, toEmail, toName, subject, htmlBody string) error {
	message := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.from),
		subject,
		mail.NewEmail(toName, toEmail),
		"",
		htmlBody,
	)
	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

// ============================================================
// NOTIFICATION SERVICE
// ============================================================

// NotificationService turns house events into pushes and e-mails. Either
// channel may be nil, in which case it is skipped.
type NotificationService struct {
	users   database.UserStore
	push    PushSender
	email   EmailSender
	appName string
	log     *slog.Logger
}

func NewNotificationService(users database.UserStore, push PushSender, email EmailSender, appName string) *NotificationService {
	return &NotificationService{
		users:   users,
		push:    push,
		email:   email,
		appName: appName,
		log:     logger.Component("notifications"),
	}
}

func (ns *NotificationService) sendPush(ctx context.Context, user models.User, title, body string, data map[string]string) {
	if user.FCMToken == "" {
		return
	}
	if ns.push == nil {
		ns.log.Debug("⚠️  Push not configured, skipping", "user_id", user.ID)
		return
	}
	if err := ns.push.SendPush(ctx, user.FCMToken, title, body, data); err != nil {
		ns.log.Warn("❌ Push notification failed", "user_id", user.ID, "error", err)
		return
	}
	ns.log.Info("✅ Push notification sent", "user_id", user.ID, "type", data["type"])
}

func (ns *NotificationService) sendEmail(ctx context.Context, toEmail, toName, subject, htmlBody string) {
	if ns.email == nil {
		ns.log.Warn("⚠️  SendGrid API key not set, skipping email", "to", toEmail)
		return
	}
	if err := ns.email.SendEmail(ctx, toEmail, toName, subject, htmlBody); err != nil {
		ns.log.Warn("❌ Email send failed", "to", toEmail, "error", err)
		return
	}
	ns.log.Info("✅ Email sent", "to", toEmail)
}

func (ns *NotificationService) othersInHouse(ctx context.Context, houseID, actorID uuid.UUID) []models.User {
	members, err := ns.users.ListHouseMembers(ctx, houseID)
	if err != nil {
		ns.log.Warn("❌ Could not load house members", "house_id", houseID, "error", err)
		return nil
	}
	others := members[:0]
	for _, m := range members {
		if m.ID != actorID {
			others = append(others, m)
		}
	}
	return others
}

// eachRecipient runs send for every user, a few at a time.
func (ns *NotificationService) eachRecipient(users []models.User, send func(user models.User)) {
	var g errgroup.Group
	g.SetLimit(maxConcurrentSends)
	for _, user := range users {
		user := user
		g.Go(func() error {
			send(user)
			return nil
		})
	}
	_ = g.Wait()
}

// ============================================================
// NOTIFICATION EVENTS
// ============================================================

// NotifyExpenseAdded tells the other members about a new expense.
func (ns *NotificationService) NotifyExpenseAdded(house models.House, expense models.Expense, actor models.User) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	title := fmt.Sprintf("%s adicionou uma despesa", actor.Name)
	body := fmt.Sprintf("\"%s\" de R$ %s em %s", expense.Name, expense.Value.StringFixed(2), house.Name)

	ns.eachRecipient(ns.othersInHouse(ctx, house.ID, actor.ID), func(user models.User) {
		ns.sendPush(ctx, user, title, body, map[string]string{
			"type":       models.ActivityExpenseAdded,
			"expense_id": expense.ID.String(),
			"house_id":   house.ID.String(),
		})

		htmlBody := render(expenseEmail, map[string]interface{}{
			"UserName":  user.Name,
			"PayerName": expense.PaidBy,
			"ActorName": actor.Name,
			"Name":      expense.Name,
			"Value":     expense.Value.StringFixed(2),
			"Category":  string(expense.Category),
			"HouseName": house.Name,
			"AppName":   ns.appName,
		})
		ns.sendEmail(ctx, user.Email, user.Name, fmt.Sprintf("%s adicionou \"%s\" em %s", actor.Name, expense.Name, house.Name), htmlBody)
	})
}

// NotifySettlement tells the other members that the actor paid their part.
func (ns *NotificationService) NotifySettlement(house models.House, settlement models.Expense, actor models.User) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	amount := settlement.Value.StringFixed(2)
	title := fmt.Sprintf("%s acertou as contas", actor.Name)
	body := fmt.Sprintf("%s registrou um pagamento de R$ %s em %s", actor.Name, amount, house.Name)

	ns.eachRecipient(ns.othersInHouse(ctx, house.ID, actor.ID), func(user models.User) {
		ns.sendPush(ctx, user, title, body, map[string]string{
			"type":     models.ActivitySettlement,
			"house_id": house.ID.String(),
		})

		htmlBody := render(settlementEmail, map[string]interface{}{
			"UserName":  user.Name,
			"PayerName": actor.Name,
			"Amount":    amount,
			"HouseName": house.Name,
			"AppName":   ns.appName,
		})
		ns.sendEmail(ctx, user.Email, user.Name, fmt.Sprintf("%s acertou as contas em %s", actor.Name, house.Name), htmlBody)
	})
}

// NotifyMemberJoined greets the existing members with the newcomer.
func (ns *NotificationService) NotifyMemberJoined(house models.House, member models.User) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	title := fmt.Sprintf("%s entrou em \"%s\"", member.Name, house.Name)
	body := "Agora vocês podem dividir as despesas da casa."

	ns.eachRecipient(ns.othersInHouse(ctx, house.ID, member.ID), func(user models.User) {
		ns.sendPush(ctx, user, title, body, map[string]string{
			"type":     models.ActivityMemberJoined,
			"house_id": house.ID.String(),
		})
	})
}

// NotifyInvitation e-mails an invite link to someone who may not have an account yet.
func (ns *NotificationService) NotifyInvitation(email, inviterName, houseName, link string) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	subject := fmt.Sprintf("%s convidou você para \"%s\" no %s", inviterName, houseName, ns.appName)
	htmlBody := render(invitationEmail, map[string]interface{}{
		"InviterName": inviterName,
		"HouseName":   houseName,
		"Link":        link,
		"AppName":     ns.appName,
	})
	ns.sendEmail(ctx, email, "", subject, htmlBody)
}

// ============================================================
// EMAIL TEMPLATES
// ============================================================

const emailLayout = `
<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
	<div style="background: white; border-radius: 12px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
		{{template "content" .}}
		<p style="color: #999; font-size: 12px; margin-top: 24px;">{{.AppName}}</p>
	</div>
</body>
</html>`

var (
	expenseEmail = mustEmail(`{{define "content"}}
		<h2 style="color: #1DB954; margin-top: 0;">💰 Nova despesa</h2>
		<p>Oi <strong>{{.UserName}}</strong>,</p>
		<p><strong>{{.ActorName}}</strong> adicionou uma despesa em <strong>{{.HouseName}}</strong>:</p>
		<div style="background: #f8f9fa; border-radius: 8px; padding: 16px; margin: 16px 0;">
			<p style="margin: 4px 0; font-size: 18px;"><strong>{{.Name}}</strong></p>
			<p style="margin: 4px 0; color: #666;">{{.Category}} · pago por {{.PayerName}}</p>
			<p style="margin: 4px 0; font-size: 18px;"><strong>R$ {{.Value}}</strong></p>
		</div>
{{end}}`)

	settlementEmail = mustEmail(`{{define "content"}}
		<h2 style="color: #1DB954; margin-top: 0;">✅ Pagamento registrado</h2>
		<p>Oi <strong>{{.UserName}}</strong>,</p>
		<p><strong>{{.PayerName}}</strong> registrou um pagamento de <strong>R$ {{.Amount}}</strong> em <strong>{{.HouseName}}</strong>.</p>
		<p>Abra o app para ver o saldo atualizado.</p>
{{end}}`)

	invitationEmail = mustEmail(`{{define "content"}}
		<h2 style="color: #1DB954; margin-top: 0;">🎉 Você foi convidado(a)!</h2>
		<p><strong>{{.InviterName}}</strong> convidou você para dividir as contas de <strong>"{{.HouseName}}"</strong>.</p>
		<div style="margin: 24px 0;">
			<a href="{{.Link}}" style="background: #1DB954; color: white; padding: 12px 32px; border-radius: 8px; text-decoration: none; font-weight: bold;">Entrar na casa</a>
		</div>
{{end}}`)
)

func mustEmail(content string) *template.Template {
	return template.Must(template.Must(template.New("email").Parse(emailLayout)).Parse(content))
}

func render(t *template.Template, data map[string]interface{}) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		logger.Component("notifications").Error("❌ Email template failed", "error", err)
		return ""
	}
	return buf.String()
}
