/*
 * Copyright 2021 National Library of Norway.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *       http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cmd

import (
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nlnwa/marc21/cmd/marc21cmd/cmd/browse"
	"github.com/nlnwa/marc21/cmd/marc21cmd/cmd/cat"
	"github.com/nlnwa/marc21/cmd/marc21cmd/cmd/ls"
	"github.com/nlnwa/marc21/cmd/marc21cmd/cmd/validate"
)

type conf struct {
	cfgFile string
	verbose bool
}

// NewCommand returns the root command for marc21cmd.
func NewCommand() *cobra.Command {
	c := &conf{}
	cmd := &cobra.Command{
		Use:   "marc21cmd",
		Short: "Read, inspect and validate ISO 2709 / MARC21 bibliographic records",
		Long: `marc21cmd reads files of concatenated ISO 2709 records, decodes them into
MARC21 records, and offers a handful of subcommands for dumping, listing,
validating and browsing them.`,
	}

	cobra.OnInitialize(func() { c.initConfig() })

	cmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default is $HOME/.marc21cmd.yaml)")
	cmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if c.verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	}

	cmd.AddCommand(cat.NewCommand())
	cmd.AddCommand(ls.NewCommand())
	cmd.AddCommand(validate.NewCommand())
	cmd.AddCommand(browse.NewCommand())

	return cmd
}

// initConfig reads a config file and environment variables into viper, following the
// same $HOME/.marc21cmd.yaml convention regardless of which subcommand consults it.
func (c *conf) initConfig() {
	if c.cfgFile != "" {
		viper.SetConfigFile(c.cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".marc21cmd")
	}

	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		logrus.WithField("file", viper.ConfigFileUsed()).Debug("using config file")
	}
}
