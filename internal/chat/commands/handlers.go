package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"codeberg.org/kcchat/server/internal/model"
)

// Register wires every built-in verb from spec.md §4.2's table into reg.
// Dynamic SimpleResponse commands (addcom) are registered separately as
// they're created, with builtIn=false.
func Register(reg *Registry) {
	reg.Register("addcom", model.AuthMod, true, handleAddCom)
	reg.Register("editcom", model.AuthMod, true, handleEditCom)
	reg.Register("delcom", model.AuthMod, true, handleDelCom)
	reg.Register("commands", model.AuthUser, true, handleCommands)
	reg.Register("help", model.AuthUser, true, handleCommands)
	reg.Register("alert", model.AuthMod, true, handleAlert)
	reg.Register("autotts", model.AuthMod, true, overlayCommandHandler("auto_tts", "Auto TTS toggled."))
	reg.Register("nexttts", model.AuthMod, true, overlayCommandHandler("next_tts", "Skipped to next TTS message."))
	reg.Register("pausetts", model.AuthMod, true, overlayCommandHandler("pause_tts", "TTS paused."))
	reg.Register("purgetts", model.AuthMod, true, overlayCommandHandler("purge_tts", "TTS queue purged."))
	reg.Register("skiptts", model.AuthMod, true, overlayCommandHandler("skip_tts", "Skipped current TTS message."))
	reg.Register("say", model.AuthMod, true, handleSay)
	reg.Register("time", model.AuthUser, true, handleTime)
	reg.Register("timer", model.AuthUser, true, handleTimer)
	reg.Register("info", model.AuthUser, true, handleInfo)
	reg.Register("followmode", model.AuthMod, true, handleFollowMode)
	reg.Register("slowmode", model.AuthMod, true, handleSlowMode)
	reg.Register("slow", model.AuthMod, true, handleSlowMode)
	reg.Register("ban", model.AuthMod, true, handleBan(false))
	reg.Register("ipban", model.AuthMod, true, handleBan(true))
	reg.Register("ip", model.AuthMod, true, handleBan(true))
	reg.Register("unban", model.AuthMod, true, handleUnban)
	reg.Register("mod", model.AuthAdmin, true, handleMod)
	reg.Register("unmod", model.AuthAdmin, true, handleUnmod)
	reg.Register("delete", model.AuthMod, true, handleDelete)
	reg.Register("del", model.AuthMod, true, handleDelete)
	reg.Register("rm", model.AuthMod, true, handleDelete)
	reg.Register("video", model.AuthAdmin, true, handleVideo)
}

// BuildVersion is the server version commandInfo reports. The original
// reported a literal "0.1"; spec.md §9 treats it as a build-time
// constant.
const BuildVersion = "0.1"

func handleAddCom(svc Services, reg *Registry, req Request) Response {
	if len(req.Args) < 2 {
		return ErrorResponse(`Usage: addcom <command> <response...>`)
	}
	verb := strings.ToLower(req.Args[0])
	if reg.Exists(verb) {
		return ErrorResponse(fmt.Sprintf("Command %q already exists", verb))
	}
	response := strings.Join(req.Args[1:], " ")
	if err := svc.AddSimpleResponse(verb, response); err != nil {
		return ErrorResponse("Internal server error")
	}
	reg.Register(verb, model.AuthUser, false, simpleResponseHandler(response))
	return ErrorResponse(fmt.Sprintf("Added command %q", verb))
}

func handleEditCom(svc Services, reg *Registry, req Request) Response {
	if len(req.Args) < 2 {
		return ErrorResponse(`Usage: editcom <command> <response...>`)
	}
	verb := strings.ToLower(req.Args[0])
	if !reg.Exists(verb) {
		return ErrorResponse(fmt.Sprintf("Command %q doesn't exist", verb))
	}
	if reg.IsBuiltIn(verb) {
		return ErrorResponse(fmt.Sprintf("%q is a built-in command and can't be edited", verb))
	}
	response := strings.Join(req.Args[1:], " ")
	if err := svc.EditSimpleResponse(verb, response); err != nil {
		return ErrorResponse("Internal server error")
	}
	reg.Register(verb, model.AuthUser, false, simpleResponseHandler(response))
	return ErrorResponse(fmt.Sprintf("Edited command %q", verb))
}

func handleDelCom(svc Services, reg *Registry, req Request) Response {
	if len(req.Args) != 1 {
		return ErrorResponse(`Usage: delcom <command>`)
	}
	verb := strings.ToLower(req.Args[0])
	if !reg.Exists(verb) {
		return ErrorResponse(fmt.Sprintf("Command %q doesn't exist", verb))
	}
	if reg.IsBuiltIn(verb) {
		return ErrorResponse(fmt.Sprintf("%q is a built-in command and can't be deleted", verb))
	}
	if err := svc.RemoveSimpleResponse(verb); err != nil {
		return ErrorResponse("Internal server error")
	}
	reg.Unregister(verb)
	return ErrorResponse(fmt.Sprintf("Deleted command %q", verb))
}

func handleCommands(svc Services, reg *Registry, req Request) Response {
	verbs := reg.VerbsFor(req.AuthLevel)
	return ErrorResponse(strings.Join(verbs, ", "))
}

func handleAlert(svc Services, reg *Registry, req Request) Response {
	if len(req.Args) == 0 {
		return ErrorResponse(`Usage: alert <title> [subtitle]`)
	}
	title := req.Args[0]
	subtitle := ""
	if len(req.Args) > 1 {
		subtitle = strings.Join(req.Args[1:], " ")
	}
	svc.EmitAlert(title, subtitle)
	return ErrorResponse("Alert sent")
}

func overlayCommandHandler(name, confirmation string) Handler {
	return func(svc Services, reg *Registry, req Request) Response {
		svc.EmitOverlayCommand(name)
		return ErrorResponse(confirmation)
	}
}

func handleSay(svc Services, reg *Registry, req Request) Response {
	// The "..."-preserving tokenizer forces the whole message into a
	// single quoted argument, hence this strict arity check (spec.md §9).
	if len(req.Args) != 1 {
		return ErrorResponse(`Usage: say "<message>"`)
	}
	return PublicResponse(req.Args[0])
}

func handleTime(svc Services, reg *Registry, req Request) Response {
	now := time.Unix(svc.Now(), 0).UTC()
	return PublicResponse(now.Format(time.RFC1123))
}

func handleTimer(svc Services, reg *Registry, req Request) Response {
	if len(req.Args) != 2 {
		return ErrorResponse(`Usage: timer <start|check|stop> <name>`)
	}
	action := strings.ToLower(req.Args[0])
	name := strings.ToLower(req.Args[1])

	switch action {
	case "start":
		if !svc.TimerStart(name) {
			return ErrorResponse(fmt.Sprintf("Timer %q is already running", name))
		}
		return ErrorResponse(fmt.Sprintf("Timer %q started", name))
	case "check":
		elapsed, ok := svc.TimerElapsed(name)
		if !ok {
			return ErrorResponse(fmt.Sprintf("Timer %q isn't running", name))
		}
		return ErrorResponse(fmt.Sprintf("Timer %q: %s", name, secondsToHHMMSS(elapsed)))
	case "stop":
		elapsed, ok := svc.TimerStop(name)
		if !ok {
			return ErrorResponse(fmt.Sprintf("Timer %q isn't running", name))
		}
		return ErrorResponse(fmt.Sprintf("Timer %q stopped at %s", name, secondsToHHMMSS(elapsed)))
	default:
		return ErrorResponse(`Usage: timer <start|check|stop> <name>`)
	}
}

// secondsToHHMMSS formats an elapsed duration the way the original
// source's util.cpp secsToHHMMSS helper did.
func secondsToHHMMSS(total int64) string {
	hours := total / 3600
	total -= hours * 3600
	minutes := total / 60
	total -= minutes * 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, total)
}

func handleInfo(svc Services, reg *Registry, req Request) Response {
	slow, dupSlow, follow := svc.Limits()
	return ErrorResponse(fmt.Sprintf(
		"kcchat v%s — slow mode: %ds, duplicate slow mode: %ds, follow mode: %ds",
		BuildVersion, slow, dupSlow, follow,
	))
}

func handleFollowMode(svc Services, reg *Registry, req Request) Response {
	if len(req.Args) != 1 {
		return ErrorResponse(`Usage: followmode <seconds>`)
	}
	seconds, err := strconv.ParseInt(req.Args[0], 10, 64)
	if err != nil {
		return ErrorResponse("Invalid number of seconds")
	}
	svc.SetFollowMode(seconds)
	return ErrorResponse(fmt.Sprintf("Follow mode set to %ds", seconds))
}

func handleSlowMode(svc Services, reg *Registry, req Request) Response {
	if len(req.Args) != 1 {
		return ErrorResponse(`Usage: slowmode <seconds>`)
	}
	// No validation beyond the integer parse itself — preserved exactly
	// per spec.md's explicit note that slowmode, unlike followmode,
	// performs no further checks.
	seconds, _ := strconv.ParseInt(req.Args[0], 10, 64)
	svc.SetSlowMode(seconds)
	return ErrorResponse(fmt.Sprintf("Slow mode set to %ds", seconds))
}

func handleBan(isIP bool) Handler {
	return func(svc Services, reg *Registry, req Request) Response {
		if len(req.Args) == 0 {
			return ErrorResponse(`Usage: ban <name> [duration]`)
		}
		name := strings.TrimLeft(req.Args[0], "@")
		duration := ""
		if len(req.Args) > 1 {
			duration = req.Args[1]
		}

		until, err := banUntil(duration, svc.Now())
		if err != nil {
			return ErrorResponse(err.Error())
		}

		userID, ok, err := svc.SetBan(name, until)
		if err != nil {
			return ErrorResponse("Internal server error")
		}
		if !ok {
			return ErrorResponse(fmt.Sprintf("Couldn't find user %s", name))
		}

		if ids, err := svc.DropMessages(userID); err == nil && len(ids) > 0 {
			svc.BroadcastDelete(ids)
		}

		svc.NotifyBanned(userID)

		reply := fmt.Sprintf("%s banned until <span class='timestamp'>%d</span>", name, until)

		if isIP {
			count, err := svc.InsertBannedHosts(userID, until)
			if err == nil && count > 0 {
				reply += fmt.Sprintf("\n%d host(s) banned.", count)
			}
		}

		return PublicResponse(reply)
	}
}

func handleUnban(svc Services, reg *Registry, req Request) Response {
	if len(req.Args) != 1 {
		return ErrorResponse(`Usage: unban <name>`)
	}
	name := strings.TrimLeft(req.Args[0], "@")
	userID, ok, err := svc.Unban(name)
	if err != nil {
		return ErrorResponse("Internal server error")
	}
	if !ok {
		return ErrorResponse(fmt.Sprintf("Couldn't find user %s", name))
	}
	svc.NotifyUnbanned(userID)
	return PublicResponse(fmt.Sprintf("%s has been unbanned", name))
}

func handleMod(svc Services, reg *Registry, req Request) Response {
	return setAuthLevelCommand(svc, req, model.AuthMod)
}

func handleUnmod(svc Services, reg *Registry, req Request) Response {
	return setAuthLevelCommand(svc, req, model.AuthUser)
}

func setAuthLevelCommand(svc Services, req Request, level model.AuthLevel) Response {
	if len(req.Args) != 1 {
		return ErrorResponse(`Usage: mod <name>`)
	}
	name := strings.TrimLeft(req.Args[0], "@")
	userID, ok, err := svc.SetAuthLevel(name, level)
	if err != nil {
		return ErrorResponse("Internal server error")
	}
	if !ok {
		return ErrorResponse(fmt.Sprintf("Couldn't find user %s, or they're an admin", name))
	}
	svc.NotifyAuthLevel(userID, level)
	return ErrorResponse(fmt.Sprintf("%s is now %s", name, level))
}

func handleDelete(svc Services, reg *Registry, req Request) Response {
	if len(req.Args) == 0 {
		return ErrorResponse(`Usage: delete <id...>`)
	}

	var ids []int64
	for _, raw := range req.Args {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue // silently skip unparseable ids, matching the original
		}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return ErrorResponse("No valid message ids given")
	}

	dropped, err := svc.DeleteMessages(ids)
	if err != nil {
		return ErrorResponse("Internal server error")
	}
	svc.BroadcastDelete(dropped)
	return ErrorResponse(fmt.Sprintf("Deleted %d message(s)", len(dropped)))
}

func handleVideo(svc Services, reg *Registry, req Request) Response {
	if len(req.Args) != 1 {
		return ErrorResponse(`Usage: video <id>`)
	}
	if err := svc.SetVideo(req.Args[0]); err != nil {
		return ErrorResponse("Internal server error")
	}
	return ErrorResponse("Video updated")
}

// simpleResponseHandler returns a Handler serving a fixed, always-public
// reply for dynamically registered commands.
func simpleResponseHandler(response string) Handler {
	return func(svc Services, reg *Registry, req Request) Response {
		return PublicResponse(response)
	}
}
