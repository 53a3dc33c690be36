package email

// BaseTemplate wraps every email body.
const BaseTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { margin: 0; padding: 0; font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; background: #f6f7fb; color: #1f2937; }
        .container { max-width: 600px; margin: 0 auto; padding: 40px 20px; }
        .card { background: #ffffff; border-radius: 12px; padding: 32px; border: 1px solid #e5e7eb; }
        .logo h1 { font-size: 26px; color: #4f46e5; margin: 0 0 24px; text-align: center; }
        .highlight { color: #4f46e5; font-weight: 600; }
        .btn { display: inline-block; background: #4f46e5; color: #ffffff !important; text-decoration: none; padding: 12px 24px; border-radius: 8px; font-weight: 600; }
        .footer { text-align: center; margin-top: 32px; color: #6b7280; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="card">
            <div class="logo"><h1>TutorLink</h1></div>
            {{.Content}}
        </div>
        <div class="footer">
            <p>You received this email because you bought coins on TutorLink.</p>
        </div>
    </div>
</body>
</html>
`

// CoinsCreditedTemplate confirms a coin purchase.
const CoinsCreditedTemplate = `
<h2>Your coins have arrived</h2>
<p>Hi {{.Name}},</p>
<p><span class="highlight">{{.Coins}} coins</span> were added to your wallet. Your balance is now <strong>{{.Balance}}</strong>.</p>
<p>Use them to unlock contact details of students who need your help.</p>
<a href="{{.WalletURL}}" class="btn">Open wallet</a>
`
