package stealth

import (
	"time"
	"unicode"
)

// KeyAction is one keystroke of a typing plan. Backspace actions carry no Key.
type KeyAction struct {
	Key       string
	Backspace bool
	Delay     time.Duration // wait after the keystroke
}

// QWERTY neighbours used for plausible typos
var neighbours = map[rune]string{
	'a': "sqwzx", 'b': "vghn", 'c': "xdfv", 'd': "serfcx", 'e': "wrds",
	'f': "drtgvc", 'g': "ftyhbv", 'h': "gyujnb", 'i': "uokj", 'j': "huikmn",
	'k': "jiolm", 'l': "kop", 'm': "njk", 'n': "bhjm", 'o': "iplk",
	'p': "ol", 'q': "wa", 'r': "etfd", 's': "awedxz", 't': "rygf",
	'u': "yijh", 'v': "cfgb", 'w': "qesa", 'x': "zsdc", 'y': "tuhg",
	'z': "asx",
}

// Typing plans keystrokes for text at a words-per-minute rate drawn from the
// configured range. A typo is always followed by a backspace and the intended
// rune, so replaying the plan produces exactly text.
func (h *Humanizer) Typing(text string) []KeyAction {
	wpm := h.cfg.TypingSpeedMin + h.intn(h.cfg.TypingSpeedMax-h.cfg.TypingSpeedMin+1)
	perChar := 60.0 / float64(wpm) / 6.0

	runes := []rune(text)
	actions := make([]KeyAction, 0, len(runes))
	for i, r := range runes {
		if i < len(runes)-1 && h.float64() < h.cfg.TypoProbability {
			if typo, ok := h.typo(r); ok {
				actions = append(actions,
					KeyAction{Key: string(typo), Delay: h.keyDelay(perChar, r) + time.Duration(100+h.intn(200))*time.Millisecond},
					KeyAction{Backspace: true, Delay: h.keyDelay(perChar, '\b')},
				)
			}
		}
		actions = append(actions, KeyAction{Key: string(r), Delay: h.keyDelay(perChar, r)})
	}
	return actions
}

func (h *Humanizer) typo(r rune) (rune, bool) {
	near, ok := neighbours[unicode.ToLower(r)]
	if !ok {
		return r, false
	}
	opts := []rune(near)
	t := opts[h.intn(len(opts))]
	if unicode.IsUpper(r) {
		t = unicode.ToUpper(t)
	}
	return t, true
}

func (h *Humanizer) keyDelay(base float64, r rune) time.Duration {
	d := base * h.between(0.8, 1.2)
	switch r {
	case ' ', '\n', '\t':
		d *= h.between(1.5, 2.0)
	case '.', ',', '!', '?':
		d *= h.between(1.2, 1.5)
	case '\b':
		d *= h.between(0.7, 0.9)
	}
	d += h.float64() * 0.01
	return time.Duration(d * float64(time.Second))
}
