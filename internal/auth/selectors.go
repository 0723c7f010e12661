package auth

import "github.com/gkmur/letterboxd-cli/internal/locator"

var (
	signInAffordance = locator.New("sign-in affordance",
		locator.ByAttribute("data-js-trigger", "sign-in"),
		locator.ByClass("sign-in-menu"),
		locator.ByCSS(`.main-nav a[href="/sign-in/"]`),
		locator.ByRole("link", `^sign in$`),
	)

	accountMenu = locator.New("account menu",
		locator.ByAttribute("data-username", ""),
		locator.ByCSS(".main-nav .nav-account a.toggle-menu"),
		locator.ByCSS(".nav-account a[href]"),
	)

	accountName = locator.New("account name",
		locator.ByCSS(".nav-account .toggle-menu .label"),
		locator.ByCSS(".nav-account .label"),
	)

	usernameField = locator.New("username field",
		locator.ByLabel(`username|email`),
		locator.ByAttribute("name", "username"),
		locator.ByCSS("#field-username, #signin-username"),
	)

	passwordField = locator.New("password field",
		locator.ByLabel(`^password`),
		locator.ByAttribute("name", "password"),
		locator.ByCSS(`input[type="password"]`),
	)

	submitButton = locator.New("sign-in submit",
		locator.ByRole("button", `^sign in$`),
		locator.ByCSS(`form button[type="submit"], form input[type="submit"]`),
	)

	loginError = locator.New("login error",
		locator.ByRole("alert", ""),
		locator.ByClass("form-error"),
		locator.ByClass("error-message"),
		locator.ByCSS(".jnotify-error, .errormessage"),
	)

	challenge = locator.New("security challenge",
		locator.ByAttribute("data-sitekey", ""),
		locator.ByCSS(`iframe[src*="recaptcha"], iframe[src*="hcaptcha"], iframe[src*="challenges.cloudflare"]`),
	)
)
