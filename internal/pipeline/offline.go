package pipeline

import (
	"fmt"

	"github.com/fachebot/chat-unwrapped/internal/model"
	"github.com/fachebot/chat-unwrapped/internal/patterns"
)

const (
	// maxOfflineAwards 离线奖项上限（启发式素材撑不起完整奖单）
	maxOfflineAwards = 6
	// maxOfflinePerPerson 离线模式单人奖项上限
	maxOfflinePerPerson = 4
)

// offlineTitles 各模式种类对应的奖项标题与妙语
var offlineTitles = map[string]struct {
	Title string
	Quip  string
}{
	patterns.KindLateGoodMorning:     {"The Fashionably Late Riser Award", "Morning is a state of mind."},
	patterns.KindGoodnightThenTexts:  {"The False Goodnight Award", "Goodnight means see you in five minutes."},
	patterns.KindMidnightPhilosopher: {"The 2am Philosopher Award", "Sleep is for people without questions."},
	patterns.KindCatchphrase:         {"The Broken Record Award", "If it works, it works."},
	patterns.KindLaughStyle:          {"The Signature Laugh Award", "Consistency is a virtue."},
	patterns.KindApology:             {"The Chronic Apologizer Award", "Sorry for all the sorries."},
	patterns.KindEllipsis:            {"The Dramatic Pause Award", "To be continued..."},
	patterns.KindEmojiSignature:      {"The One-Emoji Wonder Award", "Why use many emoji when one do."},
	patterns.KindTripleTexter:        {"The Machine Gun Texter Award", "One thought, four messages."},
	patterns.KindOneWordTexter:       {"The Economy of Words Award", "Why say lot word when few word do trick."},
	patterns.KindInitiatorImbalance:  {"The Conversation Igniter Award", "Somebody has to go first. It's always them."},
	patterns.KindQuestionAsker:       {"The Interrogator Award", "Every chat is a press conference."},
}

// OfflineAwards 不调用任何外部服务，仅凭启发式模式生成奖项。
// 模式已按强度降序；模式不足时用参与度奖兜底，保证至少每人一项。
func OfflineAwards(stats *model.Statistics, detected []model.DetectedPattern) []model.Award {
	awards := make([]model.Award, 0, maxOfflineAwards)
	perPerson := map[string]int{}

	for _, p := range detected {
		if len(awards) >= maxOfflineAwards {
			break
		}
		entry, ok := offlineTitles[p.Kind]
		if !ok {
			continue
		}
		if perPerson[p.Person] >= maxOfflinePerPerson {
			continue
		}
		awards = append(awards, model.Award{
			Title:     entry.Title,
			Recipient: p.Person,
			Evidence:  p.Description,
			Quip:      entry.Quip,
		})
		perPerson[p.Person]++
	}

	// 兜底：没拿到奖的参与者补一个参与奖
	for _, person := range stats.Participants() {
		if len(awards) >= maxOfflineAwards {
			break
		}
		if perPerson[person] > 0 {
			continue
		}
		awards = append(awards, model.Award{
			Title:     "Active Participant Award",
			Recipient: person,
			Evidence:  fmt.Sprintf("sent %d messages", stats.MessagesPerPerson[person]),
			Quip:      "Showing up is half the battle.",
		})
		perPerson[person]++
	}

	return awards
}
