// Command hashpw prints the bcrypt hash of a password for use as
// ADMIN_PASSWORD_HASH.
//
//	go run ./cmd/hashpw 'secret'
//	echo -n 'secret' | go run ./cmd/hashpw
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-hall-booking/internal/utils"
)

func main() {
	var plain string
	if len(os.Args) > 1 {
		plain = os.Args[1]
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			logrus.WithError(err).Fatal("read password from stdin")
		}
		plain = strings.TrimRight(line, "\r\n")
	}
	if plain == "" {
		logrus.Fatal("usage: hashpw <password>")
	}
	hash, err := utils.HashPassword(plain, utils.DefaultCost)
	if err != nil {
		logrus.WithError(err).Fatal("hash password")
	}
	fmt.Println(hash)
}
