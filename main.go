package main

import (
	"flag"
	"log"
	"syscall"

	"ThermalComfort/src/utils"
)

// 向运行中的服务发送 SIGHUP: 重新打开日志并重新处理数据目录
func main() {
	pidFile := flag.String("pid", "thermal.pid", "服务写入的 pid 文件")
	flag.Parse()

	pid, err := utils.ReadPidFile(*pidFile)
	if err != nil {
		log.Fatal("Failed to read pid file:", err)
	}
	if err := syscall.Kill(pid, syscall.SIGHUP); err != nil {
		log.Fatal("Failed to send SIGHUP:", err)
	}
	log.Printf("SIGHUP sent to %d", pid)
}
