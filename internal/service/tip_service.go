package service

import "math/rand/v2"

var focusTips = []string{
	"If a task takes less than two minutes, do it now.",
	"Work in focused intervals and stop when the timer says so.",
	"Put your phone in another room while you work.",
	"Take the breaks. Rest is part of the cycle.",
	"Set one clear, specific goal for each focus block.",
	"Try background music or white noise to hold your focus.",
	"Stay hydrated and check your posture between cycles.",
	"A few slow breaths before a block lowers stress.",
	"Time-block your calendar so focus hours are protected.",
	"Schedule hard work for the hours you are most alert.",
	"Tackle the hardest task first.",
	"Keep your workspace clear of clutter.",
	"Short mindfulness practice lengthens your attention span.",
	"Walk during breaks to reset your mind.",
	"Picture the finished task before you begin.",
	"Share your session code with someone who keeps you accountable.",
	"Reward yourself after a completed session.",
	"Split large tasks into pieces that fit in one focus block.",
	"Work in natural light when you can.",
	"One task at a time.",
}

type TipService struct {
	tips []string
	intN func(n int) int
}

func NewTipService() *TipService {
	return &TipService{tips: focusTips, intN: rand.IntN}
}

// Random returns a focus tip chosen uniformly at random.
func (s *TipService) Random() string {
	return s.tips[s.intN(len(s.tips))]
}
