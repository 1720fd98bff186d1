package notifier

import (
	"strconv"

	"github.com/riskibarqy/forge/internal/domain/recap"
	"github.com/riskibarqy/forge/internal/domain/week"
	"github.com/riskibarqy/forge/internal/usecase"
	"github.com/valyala/bytebufferpool"
)

const announcementDateLayout = "Mon 2 Jan 15:04 MST"

func weekOpenedMessage(w week.Week) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("**A new FORGE week is open.**\n")
	_, _ = buf.WriteString("Set your commitment (0-7 workouts) before ")
	_, _ = buf.WriteString(w.CommitmentsCloseAt.UTC().Format(announcementDateLayout))
	_, _ = buf.WriteString(".\nWeek runs until ")
	_, _ = buf.WriteString(w.EndsAt.UTC().Format(announcementDateLayout))
	_ = buf.WriteByte('.')
	return buf.String()
}

func weekClosedMessage(w week.Week, pointsPerWorkout int) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("**Commitments are locked in.**\n")
	_, _ = buf.WriteString("Community goal: ")
	_, _ = buf.WriteString(strconv.Itoa(w.GoalPoints))
	_, _ = buf.WriteString(" points")
	if pointsPerWorkout > 0 {
		_, _ = buf.WriteString(" (")
		_, _ = buf.WriteString(strconv.Itoa(w.GoalPoints / pointsPerWorkout))
		_, _ = buf.WriteString(" workouts)")
	}
	_, _ = buf.WriteString(". Go get it.")
	return buf.String()
}

func pointsChangedMessage(w week.Week, pointsPerWorkout int) string {
	progress := usecase.ComputeProgress(w.GoalPoints, w.CurrentPoints, pointsPerWorkout)

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString(progress.Bar)
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(strconv.Itoa(progress.Percent))
	_, _ = buf.WriteString("% | ")
	_, _ = buf.WriteString(strconv.Itoa(w.CurrentPoints))
	_ = buf.WriteByte('/')
	_, _ = buf.WriteString(strconv.Itoa(w.GoalPoints))
	_, _ = buf.WriteString(" points")
	if progress.WorkoutsRemaining > 0 {
		_, _ = buf.WriteString(", ")
		_, _ = buf.WriteString(strconv.Itoa(progress.WorkoutsRemaining))
		_, _ = buf.WriteString(" workouts to go")
	}
	return buf.String()
}

// weekEndedMessage only names members from the recap buckets.
func weekEndedMessage(w week.Week, summary recap.Summary) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if summary.GoalAchieved {
		_, _ = buf.WriteString("**Week complete. Goal reached!**\n")
	} else {
		_, _ = buf.WriteString("**Week complete.**\n")
	}
	_, _ = buf.WriteString(strconv.Itoa(w.CurrentPoints))
	_ = buf.WriteByte('/')
	_, _ = buf.WriteString(strconv.Itoa(w.GoalPoints))
	_, _ = buf.WriteString(" points from ")
	_, _ = buf.WriteString(strconv.Itoa(summary.TotalWorkouts))
	_, _ = buf.WriteString(" workouts.")

	result := summary.Result
	if len(result.AboveAndBeyond) > 0 {
		_, _ = buf.WriteString("\nAbove and beyond: ")
		for i, item := range result.AboveAndBeyond {
			if i > 0 {
				_, _ = buf.WriteString(", ")
			}
			_, _ = buf.WriteString(item.UserID)
			_, _ = buf.WriteString(" (+")
			_, _ = buf.WriteString(strconv.Itoa(item.Overage))
			_ = buf.WriteByte(')')
		}
	}
	writeNames(buf, "\nSteady hands: ", result.SteadyHands)
	writeNames(buf, "\nExtra sparks: ", result.ExtraSparks)
	return buf.String()
}

func writeNames(buf *bytebufferpool.ByteBuffer, label string, names []string) {
	if len(names) == 0 {
		return
	}
	_, _ = buf.WriteString(label)
	for i, name := range names {
		if i > 0 {
			_, _ = buf.WriteString(", ")
		}
		_, _ = buf.WriteString(name)
	}
}
