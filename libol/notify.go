package libol

import "github.com/coreos/go-systemd/v22/daemon"

func PreNotify() {
	if ok, err := daemon.SdNotify(false, "STATUS=starting"); !ok && err != nil {
		Debug("PreNotify: %s", err)
	}
}

func SdNotify() {
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); !ok && err != nil {
		Debug("SdNotify: %s", err)
	}
}
